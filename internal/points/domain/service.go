package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type RecordRequest struct {
	StoreID       snowflake.ID
	Type          TransactionType
	PointsChange  int64
	InvoiceID     *snowflake.ID
	RewardClaimID *snowflake.ID
}

type Service interface {
	// Calculate resolves each line's points-per-unit through the catalog
	// tiers and sums the products. Empty line lists fall back to
	// floor(totalAmount).
	Calculate(ctx context.Context, countryID string, lines []Line, totalAmount float64) (int64, error)

	// Record appends a ledger entry and applies its signed change to the
	// store balance inside the caller's transaction. Positive changes also
	// bump the month-to-date counter.
	Record(ctx context.Context, tx *gorm.DB, req RecordRequest) (PointTransaction, error)

	// DeleteTransaction removes one ledger entry and reverts the balance it
	// applied, in a single transaction.
	DeleteTransaction(ctx context.Context, id snowflake.ID) error

	// DeleteByInvoice removes every entry referencing the invoice, reverting
	// each in turn. Runs inside the caller's transaction so an invoice
	// delete and its cascade commit together.
	DeleteByInvoice(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) error

	ListByStore(ctx context.Context, storeID snowflake.ID, limit int) ([]PointTransaction, error)

	// ResetMonth zeroes every store's month-to-date counter.
	ResetMonth(ctx context.Context) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, txn *PointTransaction) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PointTransaction, error)
	FindByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]PointTransaction, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	ListByStore(ctx context.Context, db *gorm.DB, storeID snowflake.ID, limit int) ([]PointTransaction, error)

	ApplyBalance(ctx context.Context, db *gorm.DB, storeID snowflake.ID, deltaTotal, deltaMonth int64) error
	ResetMonth(ctx context.Context, db *gorm.DB) error
}

var (
	ErrNotFound        = errors.New("point_transaction_not_found")
	ErrInvalidArgument = errors.New("invalid_argument")
	ErrStoreNotFound   = errors.New("store_not_found")
)
