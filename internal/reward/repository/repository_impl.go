package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cielo/internal/reward/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

func (r *repo) InsertClaim(ctx context.Context, db *gorm.DB, claim *domain.RewardClaim) error {
	return db.WithContext(ctx).Create(claim).Error
}

func (r *repo) FindClaim(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.RewardClaim, error) {
	var claim domain.RewardClaim
	err := db.WithContext(ctx).Where("id = ?", id).First(&claim).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &claim, nil
}

func (r *repo) UpdateClaim(ctx context.Context, db *gorm.DB, claim *domain.RewardClaim) error {
	return db.WithContext(ctx).Save(claim).Error
}

func (r *repo) ListClaims(ctx context.Context, db *gorm.DB, filter domain.ClaimFilter) ([]domain.RewardClaim, error) {
	q := db.WithContext(ctx).Model(&domain.RewardClaim{})
	if filter.StoreID != 0 {
		q = q.Where("store_id = ?", filter.StoreID)
	}
	if filter.DistributorID != "" {
		q = q.Where("distributor_id = ?", filter.DistributorID)
	}
	if filter.CountryID != "" {
		q = q.Where("country_id = ?", filter.CountryID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ClaimedBefore != nil {
		q = q.Where("claimed_at < ?", *filter.ClaimedBefore)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var claims []domain.RewardClaim
	err := q.Order("claimed_at ASC").Limit(limit).Find(&claims).Error
	return claims, err
}

func (r *repo) CountClaims(ctx context.Context, db *gorm.DB, storeID, rewardID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.RewardClaim{}).
		Where("store_id = ? AND reward_id = ?", storeID, rewardID).
		Count(&count).Error
	return count, err
}

func (r *repo) FindStock(ctx context.Context, db *gorm.DB, distributorID string, rewardID snowflake.ID, countryID string) (*domain.DistributorRewardStock, error) {
	var stock domain.DistributorRewardStock
	err := db.WithContext(ctx).
		Where("distributor_id = ? AND reward_id = ? AND country_id = ?", distributorID, rewardID, countryID).
		First(&stock).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &stock, nil
}

func (r *repo) UpsertStock(ctx context.Context, db *gorm.DB, stock *domain.DistributorRewardStock) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "distributor_id"}, {Name: "reward_id"}, {Name: "country_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
	}).Create(stock).Error
}

func (r *repo) ListStock(ctx context.Context, db *gorm.DB, distributorID string) ([]domain.DistributorRewardStock, error) {
	q := db.WithContext(ctx).Model(&domain.DistributorRewardStock{})
	if distributorID != "" {
		q = q.Where("distributor_id = ?", distributorID)
	}
	var stock []domain.DistributorRewardStock
	err := q.Order("updated_at DESC").Find(&stock).Error
	return stock, err
}

// ReserveStock carries the availability re-check in its WHERE clause so the
// reservation and the check are one atomic statement.
func (r *repo) ReserveStock(ctx context.Context, db *gorm.DB, distributorID string, rewardID snowflake.ID, countryID string) (int64, error) {
	res := db.WithContext(ctx).Model(&domain.DistributorRewardStock{}).
		Where("distributor_id = ? AND reward_id = ? AND country_id = ?", distributorID, rewardID, countryID).
		Where("quantity - reserved > 0").
		Updates(map[string]any{
			"reserved":   gorm.Expr("reserved + 1"),
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *repo) ConsumeStock(ctx context.Context, db *gorm.DB, distributorID string, rewardID snowflake.ID, countryID string) (int64, error) {
	res := db.WithContext(ctx).Model(&domain.DistributorRewardStock{}).
		Where("distributor_id = ? AND reward_id = ? AND country_id = ?", distributorID, rewardID, countryID).
		Where("quantity > 0 AND reserved > 0").
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - 1"),
			"reserved":   gorm.Expr("reserved - 1"),
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}
