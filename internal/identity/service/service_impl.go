package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cielo/internal/identity/domain"
	"github.com/smallbiznis/cielo/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("identity.service"),
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, email, password string) (snowflake.ID, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return 0, domain.ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return 0, domain.ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	identity := domain.Identity{
		UserID:       s.genID.Generate(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&identity).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return 0, domain.ErrEmailExists
		}
		return 0, err
	}
	return identity.UserID, nil
}

func (s *Service) Delete(ctx context.Context, userID snowflake.ID) error {
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.Identity{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) Verify(ctx context.Context, email, password string) (snowflake.ID, error) {
	email = normalizeEmail(email)
	var identity domain.Identity
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domain.ErrInvalidCredentials
		}
		return 0, err
	}
	if bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)) != nil {
		return 0, domain.ErrInvalidCredentials
	}
	return identity.UserID, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID snowflake.ID, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return domain.ErrInvalidPassword
	}

	var identity domain.Identity
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(oldPassword)) != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Model(&domain.Identity{}).
		Where("user_id = ?", userID).
		Update("password_hash", string(hash)).Error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
