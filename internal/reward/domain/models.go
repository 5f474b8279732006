package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type ClaimStatus string

const (
	ClaimPending      ClaimStatus = "pending"
	ClaimInAssignment ClaimStatus = "in_assignment"
	ClaimInTransit    ClaimStatus = "in_transit"
	ClaimDelivered    ClaimStatus = "delivered"
	ClaimRejected     ClaimStatus = "rejected"
	ClaimExpired      ClaimStatus = "expired"
	ClaimCancelled    ClaimStatus = "cancelled"
)

// validTransitions is the full claim state machine. Delivered, rejected,
// expired and cancelled are terminal.
var validTransitions = map[ClaimStatus][]ClaimStatus{
	ClaimPending:      {ClaimInAssignment, ClaimInTransit, ClaimRejected, ClaimExpired, ClaimCancelled},
	ClaimInAssignment: {ClaimInTransit, ClaimRejected, ClaimExpired, ClaimCancelled},
	ClaimInTransit:    {ClaimDelivered, ClaimRejected, ClaimCancelled},
}

func (s ClaimStatus) CanTransitionTo(next ClaimStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ClaimStatus) Terminal() bool {
	switch s {
	case ClaimDelivered, ClaimRejected, ClaimExpired, ClaimCancelled:
		return true
	default:
		return false
	}
}

// RewardClaim is a store's redemption of a country reward. Points are
// deducted at creation; stock is reserved at assignment and consumed at
// delivery.
type RewardClaim struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	StoreID        snowflake.ID `gorm:"not null;index" json:"store_id"`
	RewardID       snowflake.ID `gorm:"not null" json:"reward_id"`
	DistributorID  string       `gorm:"not null;default:''" json:"distributor_id,omitempty"`
	CountryID      string       `gorm:"not null" json:"country_id"`
	PointsDeducted int64        `gorm:"not null" json:"points_deducted"`
	Status         ClaimStatus  `gorm:"type:text;not null;default:'pending';index" json:"status"`
	ClaimedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"claimed_at"`
	DeliveredAt    *time.Time   `json:"delivered_at,omitempty"`
	Rating         *int16       `json:"rating,omitempty"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (RewardClaim) TableName() string { return "reward_claims" }

// DistributorRewardStock tracks a distributor's physical inventory for one
// reward in one country. Invariant: 0 <= reserved <= quantity.
type DistributorRewardStock struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	DistributorID string       `gorm:"not null;uniqueIndex:ux_stock_distributor_reward,priority:1" json:"distributor_id"`
	RewardID      snowflake.ID `gorm:"not null;uniqueIndex:ux_stock_distributor_reward,priority:2" json:"reward_id"`
	CountryID     string       `gorm:"not null;uniqueIndex:ux_stock_distributor_reward,priority:3" json:"country_id"`
	Quantity      int64        `gorm:"not null;default:0" json:"quantity"`
	Reserved      int64        `gorm:"not null;default:0" json:"reserved"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (DistributorRewardStock) TableName() string { return "distributor_reward_stock" }

func (s DistributorRewardStock) Available() int64 { return s.Quantity - s.Reserved }
