package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cielo/internal/points/domain"
	storedomain "github.com/smallbiznis/cielo/internal/store/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

func (r *repo) Insert(ctx context.Context, db *gorm.DB, txn *domain.PointTransaction) error {
	return db.WithContext(ctx).Create(txn).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PointTransaction, error) {
	var txn domain.PointTransaction
	err := db.WithContext(ctx).Where("id = ?", id).First(&txn).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repo) FindByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]domain.PointTransaction, error) {
	var txns []domain.PointTransaction
	err := db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC").
		Find(&txns).Error
	return txns, err
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.PointTransaction{}).Error
}

func (r *repo) ListByStore(ctx context.Context, db *gorm.DB, storeID snowflake.ID, limit int) ([]domain.PointTransaction, error) {
	var txns []domain.PointTransaction
	err := db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}

// ApplyBalance adds the deltas in SQL rather than writing a value computed
// from an earlier read, so concurrent appliers cannot clobber each other.
func (r *repo) ApplyBalance(ctx context.Context, db *gorm.DB, storeID snowflake.ID, deltaTotal, deltaMonth int64) error {
	res := db.WithContext(ctx).Model(&storedomain.Store{}).
		Where("id = ?", storeID).
		Updates(map[string]any{
			"points_total": gorm.Expr("points_total + ?", deltaTotal),
			"points_month": gorm.Expr("points_month + ?", deltaMonth),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrStoreNotFound
	}
	return nil
}

func (r *repo) ResetMonth(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Model(&storedomain.Store{}).
		Where("points_month <> 0").
		Update("points_month", 0).Error
}
