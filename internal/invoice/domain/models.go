package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	pointsdomain "github.com/smallbiznis/cielo/internal/points/domain"
	"gorm.io/datatypes"
)

type InvoiceStatus string

const (
	StatusPending  InvoiceStatus = "pending"
	StatusApproved InvoiceStatus = "approved"
	StatusRejected InvoiceStatus = "rejected"
)

// Invoice is a purchase receipt submitted by a store. Points are computed
// at confirmation but only applied to the balance on approval.
type Invoice struct {
	ID             snowflake.ID                           `gorm:"primaryKey" json:"id"`
	StoreID        snowflake.ID                           `gorm:"not null;index" json:"store_id"`
	CountryID      string                                 `gorm:"not null" json:"country_id"`
	InvoiceNumber  string                                 `gorm:"not null;index:ix_invoices_number_country,priority:1" json:"invoice_number"`
	TotalAmount    float64                                `gorm:"not null;default:0" json:"total_amount"`
	Products       datatypes.JSONSlice[pointsdomain.Line] `gorm:"not null" json:"products"`
	PointsEarned   int64                                  `gorm:"not null;default:0" json:"points_earned"`
	Status         InvoiceStatus                          `gorm:"type:text;not null;default:'pending'" json:"status"`
	DistributorID  string                                 `gorm:"not null;default:''" json:"distributor_id,omitempty"`
	ImageURL       string                                 `gorm:"not null;default:''" json:"image_url,omitempty"`
	CreatedAt      time.Time                              `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	ApprovedAt     *time.Time                             `json:"approved_at,omitempty"`
	ApprovedBy     *snowflake.ID                          `json:"approved_by,omitempty"`
	RejectedAt     *time.Time                             `json:"rejected_at,omitempty"`
	RejectedBy     *snowflake.ID                          `json:"rejected_by,omitempty"`
	RejectedReason *string                                `json:"rejected_reason,omitempty"`
}

func (Invoice) TableName() string { return "invoices" }
