package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// GlobalProduct is the base catalog entry keyed by SKU.
type GlobalProduct struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	SKU           string       `gorm:"column:sku;not null;uniqueIndex" json:"sku"`
	Name          string       `gorm:"not null" json:"name"`
	PointsPerUnit int64        `gorm:"not null;default:0" json:"points_per_unit"`
	Active        bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (GlobalProduct) TableName() string { return "global_products" }

// CountryProduct overrides a GlobalProduct for one country: localized name,
// local SKU and points value. Resolution prefers the country row.
type CountryProduct struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	CountryID     string       `gorm:"not null;uniqueIndex:ux_country_products_country_sku,priority:1" json:"country_id"`
	SKU           string       `gorm:"column:sku;not null;uniqueIndex:ux_country_products_country_sku,priority:2" json:"sku"`
	LocalSKU      string       `gorm:"column:local_sku;not null;default:''" json:"local_sku,omitempty"`
	LocalName     string       `gorm:"not null;default:''" json:"local_name,omitempty"`
	PointsPerUnit int64        `gorm:"not null;default:0" json:"points_per_unit"`
	Active        bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CountryProduct) TableName() string { return "country_products" }

// GlobalReward is a redeemable reward available to every country.
type GlobalReward struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	Name           string       `gorm:"not null" json:"name"`
	Description    string       `gorm:"not null;default:''" json:"description,omitempty"`
	PointsRequired int64        `gorm:"not null" json:"points_required"`
	Active         bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (GlobalReward) TableName() string { return "global_rewards" }

// CountryReward is the redeemable entry stores actually claim against. It
// either derives from a GlobalReward or is a standalone local reward.
type CountryReward struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	CountryID      string        `gorm:"not null;index" json:"country_id"`
	GlobalRewardID *snowflake.ID `gorm:"index" json:"global_reward_id,omitempty"`
	Name           string        `gorm:"not null" json:"name"`
	Description    string        `gorm:"not null;default:''" json:"description,omitempty"`
	PointsRequired int64         `gorm:"not null" json:"points_required"`
	// AutoClaim marks rewards that are claimed automatically when a store's
	// balance crosses PointsRequired after an invoice approval.
	AutoClaim bool      `gorm:"not null;default:false" json:"auto_claim"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CountryReward) TableName() string { return "country_rewards" }
