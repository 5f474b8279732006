package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	pointsdomain "github.com/smallbiznis/cielo/internal/points/domain"
	"gorm.io/gorm"
)

type ConfirmRequest struct {
	StoreID       snowflake.ID
	StoreName     string
	CountryID     string
	InvoiceNumber string
	ImageURL      string
	Products      []pointsdomain.Line
	TotalAmount   float64
}

type ConfirmResponse struct {
	InvoiceID    snowflake.ID  `json:"invoice_id"`
	PointsEarned int64         `json:"points_earned"`
	Status       InvoiceStatus `json:"status"`
}

// DecideRequest carries both the approve and reject paths; PointsOverride
// lets an admin grant a different point total than the computed one.
type DecideRequest struct {
	InvoiceID      snowflake.ID
	Approve        bool
	Reason         string
	PointsOverride *int64
}

type ListFilter struct {
	StoreID       snowflake.ID
	CountryID     string
	DistributorID string
	Status        InvoiceStatus
	Limit         int
}

type Service interface {
	Confirm(ctx context.Context, req ConfirmRequest) (ConfirmResponse, error)
	Decide(ctx context.Context, req DecideRequest) (Invoice, error)
	Delete(ctx context.Context, id snowflake.ID) error
	GetByID(ctx context.Context, id snowflake.ID) (Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]Invoice, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	// CountDuplicates counts invoices in the given statuses sharing the
	// number and country, excluding the given id when non-zero.
	CountDuplicates(ctx context.Context, db *gorm.DB, invoiceNumber, countryID string, statuses []InvoiceStatus, exclude snowflake.ID) (int64, error)
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Invoice, error)
}

var (
	ErrNotFound         = errors.New("invoice_not_found")
	ErrDuplicate        = errors.New("duplicate_invoice")
	ErrNotPending       = errors.New("invoice_not_pending")
	ErrReasonRequired   = errors.New("rejection_reason_required")
	ErrInvalidArgument  = errors.New("invalid_argument")
	ErrPermissionDenied = errors.New("permission_denied")
)
