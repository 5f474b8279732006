package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cielo/internal/store/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Store, error) {
	var store domain.Store
	err := db.WithContext(ctx).Where("id = ?", id).First(&store).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &store, nil
}

func (r *repo) FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Store, error) {
	// A store account shares its primary key with the owning user row.
	return r.FindByID(ctx, db, userID)
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, store *domain.Store) error {
	return db.WithContext(ctx).Create(store).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, countryID, distributorID string) ([]domain.Store, error) {
	q := db.WithContext(ctx).Model(&domain.Store{})
	if countryID != "" {
		q = q.Where("country_id = ?", countryID)
	}
	if distributorID != "" {
		q = q.Where("distributor_id = ?", distributorID)
	}
	var stores []domain.Store
	err := q.Order("created_at DESC").Find(&stores).Error
	return stores, err
}

func (r *repo) FindCode(ctx context.Context, db *gorm.DB, code string) (*domain.StoreCode, error) {
	var sc domain.StoreCode
	err := db.WithContext(ctx).Where("code = ?", code).First(&sc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sc, nil
}

func (r *repo) CreateCode(ctx context.Context, db *gorm.DB, code *domain.StoreCode) error {
	return db.WithContext(ctx).Create(code).Error
}

// ConsumeCode flips an unused active code to used. The WHERE clause carries
// the freshness check so two concurrent registrations cannot both win; the
// returned row count tells the caller whether it did.
func (r *repo) ConsumeCode(ctx context.Context, db *gorm.DB, code string, usedBy snowflake.ID) (int64, error) {
	now := time.Now().UTC()
	res := db.WithContext(ctx).Model(&domain.StoreCode{}).
		Where("code = ? AND active = ? AND used = ?", code, true, false).
		Updates(map[string]any{
			"used":    true,
			"used_by": usedBy,
			"used_at": now,
		})
	return res.RowsAffected, res.Error
}

func (r *repo) ListCodes(ctx context.Context, db *gorm.DB, countryID string) ([]domain.StoreCode, error) {
	q := db.WithContext(ctx).Model(&domain.StoreCode{})
	if countryID != "" {
		q = q.Where("country_id = ?", countryID)
	}
	var codes []domain.StoreCode
	err := q.Order("created_at DESC").Find(&codes).Error
	return codes, err
}
