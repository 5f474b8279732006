package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ClaimResponse struct {
	Claim           RewardClaim `json:"claim"`
	PointsRemaining int64       `json:"points_remaining"`
}

type ClaimFilter struct {
	StoreID       snowflake.ID
	DistributorID string
	CountryID     string
	Status        ClaimStatus
	ClaimedBefore *time.Time
	Limit         int
}

type UpsertStockRequest struct {
	DistributorID string
	RewardID      snowflake.ID
	CountryID     string
	Quantity      int64
}

type Service interface {
	// Claim is the store-initiated redemption: balance check, point
	// deduction and claim creation commit as one transaction.
	Claim(ctx context.Context, storeID, rewardID snowflake.ID) (ClaimResponse, error)

	// AutoClaimEligible creates claims directly at in_assignment for every
	// auto-claim reward the store's balance now covers. Invoked best-effort
	// after an invoice approval.
	AutoClaimEligible(ctx context.Context, storeID snowflake.ID) error

	// UpdateStatus applies one guarded state transition. Moving into
	// delivered consumes stock: quantity -= 1, reserved -= 1.
	UpdateStatus(ctx context.Context, claimID snowflake.ID, next ClaimStatus) (RewardClaim, error)

	// Rate stores a 1-5 rating on a delivered claim.
	Rate(ctx context.Context, claimID snowflake.ID, rating int16) error

	GetClaim(ctx context.Context, id snowflake.ID) (RewardClaim, error)
	ListClaims(ctx context.Context, filter ClaimFilter) ([]RewardClaim, error)

	// AssignPending is the scheduled job body: reserve stock for pending
	// claims, one transactional re-check per claim.
	AssignPending(ctx context.Context) (int, error)

	// ExpirePending marks pending claims older than maxAge as expired and
	// refunds the deducted points through the ledger.
	ExpirePending(ctx context.Context, maxAge time.Duration) (int, error)

	UpsertStock(ctx context.Context, req UpsertStockRequest) (DistributorRewardStock, error)
	ListStock(ctx context.Context, distributorID string) ([]DistributorRewardStock, error)
}

type Repository interface {
	InsertClaim(ctx context.Context, db *gorm.DB, claim *RewardClaim) error
	FindClaim(ctx context.Context, db *gorm.DB, id snowflake.ID) (*RewardClaim, error)
	UpdateClaim(ctx context.Context, db *gorm.DB, claim *RewardClaim) error
	ListClaims(ctx context.Context, db *gorm.DB, filter ClaimFilter) ([]RewardClaim, error)
	CountClaims(ctx context.Context, db *gorm.DB, storeID, rewardID snowflake.ID) (int64, error)

	FindStock(ctx context.Context, db *gorm.DB, distributorID string, rewardID snowflake.ID, countryID string) (*DistributorRewardStock, error)
	UpsertStock(ctx context.Context, db *gorm.DB, stock *DistributorRewardStock) error
	ListStock(ctx context.Context, db *gorm.DB, distributorID string) ([]DistributorRewardStock, error)
	// ReserveStock conditionally increments reserved where available > 0;
	// returns the number of rows changed.
	ReserveStock(ctx context.Context, db *gorm.DB, distributorID string, rewardID snowflake.ID, countryID string) (int64, error)
	// ConsumeStock decrements quantity and reserved together where both stay
	// non-negative; returns the number of rows changed.
	ConsumeStock(ctx context.Context, db *gorm.DB, distributorID string, rewardID snowflake.ID, countryID string) (int64, error)
}

var (
	ErrClaimNotFound      = errors.New("reward_claim_not_found")
	ErrInsufficientPoints = errors.New("insufficient_points")
	ErrInvalidTransition  = errors.New("invalid_claim_transition")
	ErrInvalidRating      = errors.New("invalid_rating")
	ErrNotDelivered       = errors.New("claim_not_delivered")
	ErrInvalidArgument    = errors.New("invalid_argument")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
)
