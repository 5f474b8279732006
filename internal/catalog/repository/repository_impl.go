package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cielo/internal/catalog/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

func (r *repo) FindGlobalProductBySKU(ctx context.Context, db *gorm.DB, sku string) (*domain.GlobalProduct, error) {
	var product domain.GlobalProduct
	err := db.WithContext(ctx).
		Where("sku = ? AND active = ?", sku, true).
		First(&product).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *repo) FindCountryProduct(ctx context.Context, db *gorm.DB, countryID, sku string) (*domain.CountryProduct, error) {
	var product domain.CountryProduct
	err := db.WithContext(ctx).
		Where("country_id = ? AND active = ?", countryID, true).
		Where("sku = ? OR local_sku = ?", sku, sku).
		First(&product).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *repo) UpsertGlobalProduct(ctx context.Context, db *gorm.DB, product *domain.GlobalProduct) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sku"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "points_per_unit", "active", "updated_at"}),
	}).Create(product).Error
}

func (r *repo) UpsertCountryProduct(ctx context.Context, db *gorm.DB, product *domain.CountryProduct) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "country_id"}, {Name: "sku"}},
		DoUpdates: clause.AssignmentColumns([]string{"local_sku", "local_name", "points_per_unit", "active", "updated_at"}),
	}).Create(product).Error
}

func (r *repo) ListGlobalProducts(ctx context.Context, db *gorm.DB) ([]domain.GlobalProduct, error) {
	var products []domain.GlobalProduct
	err := db.WithContext(ctx).
		Where("active = ?", true).
		Order("sku ASC").
		Find(&products).Error
	return products, err
}

func (r *repo) ListCountryProducts(ctx context.Context, db *gorm.DB, countryID string) ([]domain.CountryProduct, error) {
	var products []domain.CountryProduct
	err := db.WithContext(ctx).
		Where("country_id = ? AND active = ?", countryID, true).
		Order("sku ASC").
		Find(&products).Error
	return products, err
}

func (r *repo) CreateGlobalReward(ctx context.Context, db *gorm.DB, reward *domain.GlobalReward) error {
	return db.WithContext(ctx).Create(reward).Error
}

func (r *repo) CreateCountryReward(ctx context.Context, db *gorm.DB, reward *domain.CountryReward) error {
	return db.WithContext(ctx).Create(reward).Error
}

func (r *repo) FindCountryReward(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.CountryReward, error) {
	var reward domain.CountryReward
	err := db.WithContext(ctx).Where("id = ?", id).First(&reward).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &reward, nil
}

func (r *repo) ListCountryRewards(ctx context.Context, db *gorm.DB, countryID string) ([]domain.CountryReward, error) {
	var rewards []domain.CountryReward
	err := db.WithContext(ctx).
		Where("country_id = ? AND active = ?", countryID, true).
		Order("points_required ASC").
		Find(&rewards).Error
	return rewards, err
}

func (r *repo) ListAutoClaimRewards(ctx context.Context, db *gorm.DB, countryID string) ([]domain.CountryReward, error) {
	var rewards []domain.CountryReward
	err := db.WithContext(ctx).
		Where("country_id = ? AND active = ? AND auto_claim = ?", countryID, true, true).
		Order("points_required ASC").
		Find(&rewards).Error
	return rewards, err
}
