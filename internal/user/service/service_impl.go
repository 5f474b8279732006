package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cielo/internal/actorctx"
	identitydomain "github.com/smallbiznis/cielo/internal/identity/domain"
	"github.com/smallbiznis/cielo/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	IdentitySvc identitydomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	identitySvc identitydomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("user.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		identitySvc: p.IdentitySvc,
	}
}

func (s *Service) CreateDistributor(ctx context.Context, req domain.CreateDistributorRequest) (domain.User, error) {
	actor, ok := actorctx.FromContext(ctx)
	if !ok {
		return domain.User{}, domain.ErrPermissionDenied
	}
	countryID := strings.TrimSpace(req.CountryID)
	switch actor.Role {
	case string(domain.RoleSuperAdmin):
	case string(domain.RoleCountryAdmin):
		// A country admin can only provision distributors at home.
		if countryID != actor.CountryID {
			return domain.User{}, domain.ErrPermissionDenied
		}
	default:
		return domain.User{}, domain.ErrPermissionDenied
	}

	return s.provision(ctx, provisionRequest{
		Email:     req.Email,
		Name:      req.Name,
		Phone:     req.Phone,
		CountryID: countryID,
		Password:  req.Password,
		Role:      domain.RoleDistributor,
	})
}

func (s *Service) AssignCountryAdmin(ctx context.Context, req domain.AssignCountryAdminRequest) (domain.User, error) {
	actor, ok := actorctx.FromContext(ctx)
	if !ok || actor.Role != string(domain.RoleSuperAdmin) {
		return domain.User{}, domain.ErrPermissionDenied
	}

	countryID := strings.TrimSpace(req.CountryID)
	if countryID == "" {
		return domain.User{}, domain.ErrInvalidCountry
	}

	existing, err := s.repo.FindCountryAdmin(ctx, s.db, countryID)
	if err != nil {
		return domain.User{}, err
	}
	if existing != nil {
		return domain.User{}, domain.ErrAdminExists
	}

	return s.provision(ctx, provisionRequest{
		Email:     req.Email,
		Name:      req.Name,
		Phone:     req.Phone,
		CountryID: countryID,
		Password:  req.Password,
		Role:      domain.RoleCountryAdmin,
	})
}

func (s *Service) DeleteCountryAdmin(ctx context.Context, userID snowflake.ID) error {
	actor, ok := actorctx.FromContext(ctx)
	if !ok || actor.Role != string(domain.RoleSuperAdmin) {
		return domain.ErrPermissionDenied
	}

	user, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrNotFound
	}
	if user.Role != domain.RoleCountryAdmin {
		return domain.ErrNotCountryAdmin
	}

	if err := s.repo.Delete(ctx, s.db, userID); err != nil {
		return err
	}

	// Credential cleanup is best-effort; a dangling identity cannot log in
	// without a profile and is swept up manually if this ever fails.
	if err := s.identitySvc.Delete(ctx, userID); err != nil {
		s.log.Warn("failed to delete identity for removed country admin",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
	return nil
}

func (s *Service) GetByID(ctx context.Context, userID snowflake.ID) (domain.User, error) {
	user, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

func (s *Service) List(ctx context.Context, req domain.ListUsersRequest) ([]domain.User, error) {
	items, err := s.repo.List(ctx, s.db, strings.TrimSpace(req.CountryID), req.Role)
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		users = append(users, *item)
	}
	return users, nil
}

type provisionRequest struct {
	Email     string
	Name      string
	Phone     string
	CountryID string
	Password  string
	Role      domain.Role
}

// provision creates the identity first, then the profile row, deleting the
// identity again when the profile insert fails. There is no cross-service
// transaction covering both writes.
func (s *Service) provision(ctx context.Context, req provisionRequest) (domain.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.User{}, domain.ErrInvalidName
	}
	if req.CountryID == "" {
		return domain.User{}, domain.ErrInvalidCountry
	}

	userID, err := s.identitySvc.Create(ctx, req.Email, req.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:        userID,
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Name:      name,
		Phone:     strings.TrimSpace(req.Phone),
		Role:      req.Role,
		CountryID: req.CountryID,
		Status:    domain.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, &user); err != nil {
		if delErr := s.identitySvc.Delete(ctx, userID); delErr != nil {
			s.log.Warn("failed to roll back identity after profile insert failure",
				zap.String("user_id", userID.String()),
				zap.Error(delErr),
			)
		}
		return domain.User{}, err
	}
	return user, nil
}
