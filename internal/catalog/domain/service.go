package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type UpsertGlobalProductRequest struct {
	SKU           string
	Name          string
	PointsPerUnit int64
}

type UpsertCountryProductRequest struct {
	CountryID     string
	SKU           string
	LocalSKU      string
	LocalName     string
	PointsPerUnit int64
}

type CreateGlobalRewardRequest struct {
	Name           string
	Description    string
	PointsRequired int64
}

type CreateCountryRewardRequest struct {
	CountryID      string
	GlobalRewardID *snowflake.ID
	Name           string
	Description    string
	PointsRequired int64
	AutoClaim      bool
}

type Service interface {
	// ResolvePointsPerUnit implements the three-tier lookup: country
	// override, then global catalog, then the demo fallback table.
	ResolvePointsPerUnit(ctx context.Context, countryID, sku string) (int64, error)

	UpsertGlobalProduct(ctx context.Context, req UpsertGlobalProductRequest) (GlobalProduct, error)
	UpsertCountryProduct(ctx context.Context, req UpsertCountryProductRequest) (CountryProduct, error)
	ListGlobalProducts(ctx context.Context) ([]GlobalProduct, error)
	ListCountryProducts(ctx context.Context, countryID string) ([]CountryProduct, error)

	CreateGlobalReward(ctx context.Context, req CreateGlobalRewardRequest) (GlobalReward, error)
	CreateCountryReward(ctx context.Context, req CreateCountryRewardRequest) (CountryReward, error)
	GetCountryReward(ctx context.Context, id snowflake.ID) (CountryReward, error)
	ListCountryRewards(ctx context.Context, countryID string) ([]CountryReward, error)
	ListAutoClaimRewards(ctx context.Context, countryID string) ([]CountryReward, error)
}

var (
	ErrInvalidSKU     = errors.New("invalid_sku")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidCountry = errors.New("invalid_country")
	ErrInvalidPoints  = errors.New("invalid_points")
	ErrRewardNotFound = errors.New("reward_not_found")
)
