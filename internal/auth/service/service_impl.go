package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/cielo/internal/auth/domain"
	identitydomain "github.com/smallbiznis/cielo/internal/identity/domain"
	userdomain "github.com/smallbiznis/cielo/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sessionTTL = 7 * 24 * time.Hour

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	IdentitySvc identitydomain.Service
	UserRepo    userdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	identitySvc identitydomain.Service
	userRepo    userdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("auth.service"),
		identitySvc: p.IdentitySvc,
		userRepo:    p.UserRepo,
	}
}

func (s *Service) Login(ctx context.Context, email, password string) (domain.LoginResult, error) {
	userID, err := s.identitySvc.Verify(ctx, email, password)
	if err != nil {
		if errors.Is(err, identitydomain.ErrInvalidCredentials) {
			return domain.LoginResult{}, domain.ErrInvalidCredentials
		}
		return domain.LoginResult{}, err
	}

	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		return domain.LoginResult{}, err
	}
	if user == nil {
		// Identity without a profile: half-finished registration.
		return domain.LoginResult{}, domain.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	session := domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(sessionTTL),
		CreatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return domain.LoginResult{}, err
	}

	return domain.LoginResult{Session: session, User: *user}, nil
}

func (s *Service) Authenticate(ctx context.Context, token string) (userdomain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return userdomain.User{}, domain.ErrInvalidSession
	}

	var session domain.Session
	err := s.db.WithContext(ctx).Where("id = ?", token).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return userdomain.User{}, domain.ErrInvalidSession
		}
		return userdomain.User{}, err
	}
	if time.Now().UTC().After(session.ExpiresAt) {
		return userdomain.User{}, domain.ErrSessionExpired
	}

	user, err := s.userRepo.FindByID(ctx, s.db, session.UserID)
	if err != nil {
		return userdomain.User{}, err
	}
	if user == nil {
		return userdomain.User{}, domain.ErrInvalidSession
	}
	return *user, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.db.WithContext(ctx).Where("id = ?", token).Delete(&domain.Session{}).Error
}
