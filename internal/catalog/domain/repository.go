package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindGlobalProductBySKU(ctx context.Context, db *gorm.DB, sku string) (*GlobalProduct, error)
	FindCountryProduct(ctx context.Context, db *gorm.DB, countryID, sku string) (*CountryProduct, error)
	UpsertGlobalProduct(ctx context.Context, db *gorm.DB, product *GlobalProduct) error
	UpsertCountryProduct(ctx context.Context, db *gorm.DB, product *CountryProduct) error
	ListGlobalProducts(ctx context.Context, db *gorm.DB) ([]GlobalProduct, error)
	ListCountryProducts(ctx context.Context, db *gorm.DB, countryID string) ([]CountryProduct, error)

	CreateGlobalReward(ctx context.Context, db *gorm.DB, reward *GlobalReward) error
	CreateCountryReward(ctx context.Context, db *gorm.DB, reward *CountryReward) error
	FindCountryReward(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CountryReward, error)
	ListCountryRewards(ctx context.Context, db *gorm.DB, countryID string) ([]CountryReward, error)
	ListAutoClaimRewards(ctx context.Context, db *gorm.DB, countryID string) ([]CountryReward, error)
}
