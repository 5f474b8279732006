package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type StoreLevel string

const (
	LevelBronze StoreLevel = "bronze"
	LevelSilver StoreLevel = "silver"
	LevelGold   StoreLevel = "gold"
)

type StoreStatus string

const (
	StoreActive   StoreStatus = "active"
	StoreInactive StoreStatus = "inactive"
)

// Store is a shopkeeper account. PointsTotal is the redeemable balance,
// PointsMonth the month-to-date earned counter reset by the scheduler.
type Store struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	StoreCode     string       `gorm:"not null" json:"store_code"`
	Name          string       `gorm:"not null;default:''" json:"name"`
	CountryID     string       `gorm:"not null" json:"country_id"`
	DistributorID string       `gorm:"not null;default:''" json:"distributor_id"`
	PointsTotal   int64        `gorm:"not null;default:0" json:"points_total"`
	PointsMonth   int64        `gorm:"not null;default:0" json:"points_month"`
	Level         StoreLevel   `gorm:"not null;default:'bronze'" json:"level"`
	Status        StoreStatus  `gorm:"not null;default:'active'" json:"status"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Store) TableName() string { return "stores" }

// StoreCode is a single-use registration code handed to a shopkeeper by a
// country admin. Consuming it binds the new store to the code's country and
// distributor.
type StoreCode struct {
	Code          string        `gorm:"primaryKey" json:"code"`
	CountryID     string        `gorm:"not null" json:"country_id"`
	City          string        `gorm:"not null;default:''" json:"city,omitempty"`
	DistributorID string        `gorm:"not null;default:''" json:"distributor_id,omitempty"`
	Active        bool          `gorm:"not null;default:true" json:"active"`
	Used          bool          `gorm:"not null;default:false" json:"used"`
	UsedBy        *snowflake.ID `json:"used_by,omitempty"`
	UsedAt        *time.Time    `json:"used_at,omitempty"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (StoreCode) TableName() string { return "store_codes" }
