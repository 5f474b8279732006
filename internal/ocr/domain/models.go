package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Item is one recognized invoice line.
type Item struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Quantity int64   `json:"quantity"`
	Price    float64 `json:"price"`
}

// ParseResult is the structured output of a recognition pass. Mocked marks
// results fabricated by the demo fallback rather than parsed from text.
type ParseResult struct {
	InvoiceNumber string `json:"invoice_number"`
	Date          string `json:"date,omitempty"`
	Items         []Item `json:"items"`
	Mocked        bool   `json:"mocked"`
}

// Scan is the persisted debug record of a successful parse.
type Scan struct {
	ID        snowflake.ID   `gorm:"primaryKey" json:"id"`
	ImageHash string         `gorm:"not null;default:''" json:"image_hash"`
	RawText   string         `gorm:"not null" json:"raw_text"`
	Result    datatypes.JSON `gorm:"not null" json:"result"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Scan) TableName() string { return "ocr_scans" }
