package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type TransactionType string

const (
	TypePurchase         TransactionType = "purchase"
	TypeRewardRedemption TransactionType = "reward_redemption"
	TypeAdjustment       TransactionType = "adjustment"
)

// PointTransaction is one signed ledger entry against a store balance.
// Deleting an entry reverts the balance it applied; deleting an invoice
// deletes its entries, which in turn reverts their balances.
type PointTransaction struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	StoreID       snowflake.ID    `gorm:"not null;index" json:"store_id"`
	Type          TransactionType `gorm:"type:text;not null" json:"type"`
	PointsChange  int64           `gorm:"not null" json:"points_change"`
	InvoiceID     *snowflake.ID   `gorm:"index" json:"invoice_id,omitempty"`
	RewardClaimID *snowflake.ID   `json:"reward_claim_id,omitempty"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (PointTransaction) TableName() string { return "point_transactions" }

// Line is the minimal invoice line view the calculator needs.
type Line struct {
	SKU      string `json:"sku"`
	Name     string `json:"name,omitempty"`
	Quantity int64  `json:"quantity"`
}
