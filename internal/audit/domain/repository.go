package domain

import (
	"context"

	"github.com/smallbiznis/cielo/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListAuditLogFilter struct {
	Action     string
	TargetType string
	TargetID   string
	CountryID  string
	StartAt    *string
	EndAt      *string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListAuditLogFilter, page pagination.Pagination) ([]*AuditLog, error)
}
