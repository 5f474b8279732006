package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/cielo/internal/actorctx"
	identitydomain "github.com/smallbiznis/cielo/internal/identity/domain"
	"github.com/smallbiznis/cielo/internal/store/domain"
	userdomain "github.com/smallbiznis/cielo/internal/user/domain"
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
	UserRepo    userdomain.Repository
	IdentitySvc identitydomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	userRepo    userdomain.Repository
	identitySvc identitydomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("store.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		userRepo:    p.UserRepo,
		identitySvc: p.IdentitySvc,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.RegisterResponse, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.StoreCode = strings.TrimSpace(strings.ToUpper(req.StoreCode))
	req.CountryID = strings.TrimSpace(req.CountryID)
	req.OwnerName = strings.TrimSpace(req.OwnerName)
	if req.Email == "" || req.Password == "" || req.StoreCode == "" || req.CountryID == "" {
		return domain.RegisterResponse{}, domain.ErrInvalidArgument
	}

	// Advisory pre-check so obviously bad codes fail before an identity is
	// created. The authoritative check is the conditional update inside the
	// transaction below.
	code, err := s.repo.FindCode(ctx, s.db, req.StoreCode)
	if err != nil {
		return domain.RegisterResponse{}, err
	}
	if err := validateCode(code, req.CountryID); err != nil {
		return domain.RegisterResponse{}, err
	}

	userID, err := s.identitySvc.Create(ctx, req.Email, req.Password)
	if err != nil {
		return domain.RegisterResponse{}, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.ConsumeCode(ctx, tx, req.StoreCode, userID)
		if err != nil {
			return err
		}
		if affected == 0 {
			// Lost the race or the code went stale since the pre-check.
			fresh, ferr := s.repo.FindCode(ctx, tx, req.StoreCode)
			if ferr != nil {
				return ferr
			}
			if verr := validateCode(fresh, req.CountryID); verr != nil {
				return verr
			}
			return domain.ErrCodeUsed
		}

		user := userdomain.User{
			ID:            userID,
			Email:         req.Email,
			Name:          req.OwnerName,
			Phone:         strings.TrimSpace(req.Phone),
			Role:          userdomain.RoleStore,
			CountryID:     req.CountryID,
			DistributorID: code.DistributorID,
			Status:        userdomain.UserStatusActive,
		}
		if err := s.userRepo.Insert(ctx, tx, &user); err != nil {
			return err
		}

		store := domain.Store{
			ID:            userID,
			StoreCode:     req.StoreCode,
			Name:          req.OwnerName,
			CountryID:     req.CountryID,
			DistributorID: code.DistributorID,
			Level:         domain.LevelBronze,
			Status:        domain.StoreActive,
		}
		return s.repo.Create(ctx, tx, &store)
	})
	if err != nil {
		// Compensate: the identity exists but the registration never
		// completed. Best effort; an orphaned credential is logged, not fatal.
		if derr := s.identitySvc.Delete(ctx, userID); derr != nil {
			s.log.Error("failed to clean up identity after registration failure",
				zap.String("user_id", userID.String()),
				zap.Error(derr),
			)
		}
		return domain.RegisterResponse{}, err
	}

	return domain.RegisterResponse{UserID: userID, StoreID: userID}, nil
}

func validateCode(code *domain.StoreCode, countryID string) error {
	if code == nil {
		return domain.ErrCodeNotFound
	}
	if !code.Active {
		return domain.ErrCodeInactive
	}
	if code.Used {
		return domain.ErrCodeUsed
	}
	if code.CountryID != countryID {
		return domain.ErrCodeCountry
	}
	return nil
}

func (s *Service) CreateCode(ctx context.Context, req domain.CreateCodeRequest) (domain.StoreCode, error) {
	actor, ok := actorctx.FromContext(ctx)
	if !ok {
		return domain.StoreCode{}, domain.ErrPermissionDenied
	}
	countryID := strings.TrimSpace(req.CountryID)
	switch actor.Role {
	case string(userdomain.RoleSuperAdmin):
	case string(userdomain.RoleCountryAdmin):
		if countryID != actor.CountryID {
			return domain.StoreCode{}, domain.ErrPermissionDenied
		}
	default:
		return domain.StoreCode{}, domain.ErrPermissionDenied
	}
	if countryID == "" {
		return domain.StoreCode{}, domain.ErrInvalidArgument
	}

	label := strings.TrimSpace(req.Label)
	if label == "" {
		label = strings.TrimSpace(req.City)
	}
	if label == "" {
		return domain.StoreCode{}, domain.ErrInvalidArgument
	}
	// Human-readable code: slug of the label plus a short unique suffix,
	// e.g. LIMA-NORTE-118272.
	suffix := s.genID.Generate().String()
	code := strings.ToUpper(slug.Make(label)) + "-" + suffix[len(suffix)-6:]

	sc := domain.StoreCode{
		Code:          code,
		CountryID:     countryID,
		City:          strings.TrimSpace(req.City),
		DistributorID: strings.TrimSpace(req.DistributorID),
		Active:        true,
	}
	if err := s.repo.CreateCode(ctx, s.db, &sc); err != nil {
		return domain.StoreCode{}, err
	}
	return sc, nil
}

func (s *Service) ListCodes(ctx context.Context, countryID string) ([]domain.StoreCode, error) {
	return s.repo.ListCodes(ctx, s.db, strings.TrimSpace(countryID))
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.Store, error) {
	store, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Store{}, err
	}
	if store == nil {
		return domain.Store{}, domain.ErrNotFound
	}
	return *store, nil
}

func (s *Service) GetByUserID(ctx context.Context, userID snowflake.ID) (domain.Store, error) {
	store, err := s.repo.FindByUserID(ctx, s.db, userID)
	if err != nil {
		return domain.Store{}, err
	}
	if store == nil {
		return domain.Store{}, domain.ErrNotFound
	}
	return *store, nil
}

func (s *Service) List(ctx context.Context, countryID, distributorID string) ([]domain.Store, error) {
	return s.repo.List(ctx, s.db, strings.TrimSpace(countryID), strings.TrimSpace(distributorID))
}
