package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Email     string
	Password  string
	StoreCode string
	Phone     string
	CountryID string
	OwnerName string
}

type RegisterResponse struct {
	UserID  snowflake.ID `json:"user_id"`
	StoreID snowflake.ID `json:"store_id"`
}

type CreateCodeRequest struct {
	Label         string
	City          string
	CountryID     string
	DistributorID string
}

type Service interface {
	// Register consumes a single-use registration code and provisions the
	// identity, user and store records. Public, no session required.
	Register(ctx context.Context, req RegisterRequest) (RegisterResponse, error)

	CreateCode(ctx context.Context, req CreateCodeRequest) (StoreCode, error)
	ListCodes(ctx context.Context, countryID string) ([]StoreCode, error)

	GetByID(ctx context.Context, id snowflake.ID) (Store, error)
	GetByUserID(ctx context.Context, userID snowflake.ID) (Store, error)
	List(ctx context.Context, countryID, distributorID string) ([]Store, error)
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Store, error)
	FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Store, error)
	Create(ctx context.Context, db *gorm.DB, store *Store) error
	List(ctx context.Context, db *gorm.DB, countryID, distributorID string) ([]Store, error)

	FindCode(ctx context.Context, db *gorm.DB, code string) (*StoreCode, error)
	CreateCode(ctx context.Context, db *gorm.DB, code *StoreCode) error
	ConsumeCode(ctx context.Context, db *gorm.DB, code string, usedBy snowflake.ID) (int64, error)
	ListCodes(ctx context.Context, db *gorm.DB, countryID string) ([]StoreCode, error)
}

var (
	ErrNotFound         = errors.New("store_not_found")
	ErrCodeNotFound     = errors.New("store_code_not_found")
	ErrCodeInactive     = errors.New("store_code_inactive")
	ErrCodeUsed         = errors.New("store_code_used")
	ErrCodeCountry      = errors.New("store_code_country_mismatch")
	ErrCodeExists       = errors.New("store_code_exists")
	ErrInvalidArgument  = errors.New("invalid_argument")
	ErrPermissionDenied = errors.New("permission_denied")
)
