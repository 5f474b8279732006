package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cielo/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).Where("id = ?", id).First(&invoice).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) CountDuplicates(ctx context.Context, db *gorm.DB, invoiceNumber, countryID string, statuses []domain.InvoiceStatus, exclude snowflake.ID) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("invoice_number = ? AND country_id = ?", invoiceNumber, countryID).
		Where("status IN ?", statuses)
	if exclude != 0 {
		q = q.Where("id <> ?", exclude)
	}
	var count int64
	err := q.Count(&count).Error
	return count, err
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Save(invoice).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Invoice{}).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Invoice, error) {
	q := db.WithContext(ctx).Model(&domain.Invoice{})
	if filter.StoreID != 0 {
		q = q.Where("store_id = ?", filter.StoreID)
	}
	if filter.CountryID != "" {
		q = q.Where("country_id = ?", filter.CountryID)
	}
	if filter.DistributorID != "" {
		q = q.Where("distributor_id = ?", filter.DistributorID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var invoices []domain.Invoice
	err := q.Order("created_at DESC").Limit(limit).Find(&invoices).Error
	return invoices, err
}
