package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	catalogdomain "github.com/smallbiznis/cielo/internal/catalog/domain"
	catalogrepository "github.com/smallbiznis/cielo/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/cielo/internal/catalog/service"
	pointsdomain "github.com/smallbiznis/cielo/internal/points/domain"
	pointsrepository "github.com/smallbiznis/cielo/internal/points/repository"
	pointsservice "github.com/smallbiznis/cielo/internal/points/service"
	"github.com/smallbiznis/cielo/internal/reward/domain"
	"github.com/smallbiznis/cielo/internal/reward/repository"
	storedomain "github.com/smallbiznis/cielo/internal/store/domain"
	storerepository "github.com/smallbiznis/cielo/internal/store/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	genID   *snowflake.Node
	reward  domain.Service
	catalog catalogdomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&storedomain.Store{},
		&pointsdomain.PointTransaction{},
		&catalogdomain.GlobalProduct{},
		&catalogdomain.CountryProduct{},
		&catalogdomain.GlobalReward{},
		&catalogdomain.CountryReward{},
		&domain.RewardClaim{},
		&domain.DistributorRewardStock{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	catalogSvc := catalogservice.New(catalogservice.Params{
		DB: conn, Log: log, GenID: node, Repo: catalogrepository.Provide(),
	})
	pointsSvc := pointsservice.New(pointsservice.Params{
		DB: conn, Log: log, GenID: node, Repo: pointsrepository.Provide(), Catalog: catalogSvc,
	})
	rewardSvc := New(Params{
		DB:        conn,
		Log:       log,
		GenID:     node,
		Repo:      repository.Provide(),
		StoreRepo: storerepository.Provide(),
		Catalog:   catalogSvc,
		Points:    pointsSvc,
	})

	return &fixture{db: conn, genID: node, reward: rewardSvc, catalog: catalogSvc}
}

func (f *fixture) createStore(t *testing.T, points int64) storedomain.Store {
	t.Helper()
	store := storedomain.Store{
		ID:            f.genID.Generate(),
		StoreCode:     "QUITO-CENTRO-000003",
		Name:          "Tienda El Sol",
		CountryID:     "EC",
		DistributorID: "dist-1",
		PointsTotal:   points,
		PointsMonth:   points,
		Level:         storedomain.LevelBronze,
		Status:        storedomain.StoreActive,
	}
	require.NoError(t, f.db.Create(&store).Error)
	return store
}

func (f *fixture) createReward(t *testing.T, points int64, autoClaim bool) catalogdomain.CountryReward {
	t.Helper()
	reward, err := f.catalog.CreateCountryReward(context.Background(), catalogdomain.CreateCountryRewardRequest{
		CountryID:      "EC",
		Name:           "Pack 12 botellas",
		PointsRequired: points,
		AutoClaim:      autoClaim,
	})
	require.NoError(t, err)
	return reward
}

func (f *fixture) stock(t *testing.T, rewardID snowflake.ID) domain.DistributorRewardStock {
	t.Helper()
	var stock domain.DistributorRewardStock
	require.NoError(t, f.db.First(&stock, "reward_id = ?", rewardID).Error)
	return stock
}

func TestClaim_DeductsPointsAtomically(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t, 500)
	reward := f.createReward(t, 300, false)

	resp, err := f.reward.Claim(ctx, store.ID, reward.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimPending, resp.Claim.Status)
	assert.Equal(t, int64(200), resp.PointsRemaining)

	var got storedomain.Store
	require.NoError(t, f.db.First(&got, "id = ?", store.ID).Error)
	assert.Equal(t, int64(200), got.PointsTotal)
	// Redemptions never reduce the month-to-date counter.
	assert.Equal(t, int64(500), got.PointsMonth)

	var txn pointsdomain.PointTransaction
	require.NoError(t, f.db.First(&txn, "store_id = ?", store.ID).Error)
	assert.Equal(t, pointsdomain.TypeRewardRedemption, txn.Type)
	assert.Equal(t, int64(-300), txn.PointsChange)
}

func TestClaim_InsufficientPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t, 100)
	reward := f.createReward(t, 300, false)

	_, err := f.reward.Claim(ctx, store.ID, reward.ID)
	assert.ErrorIs(t, err, domain.ErrInsufficientPoints)

	// Nothing was written.
	var claims int64
	require.NoError(t, f.db.Model(&domain.RewardClaim{}).Count(&claims).Error)
	assert.Equal(t, int64(0), claims)

	var got storedomain.Store
	require.NoError(t, f.db.First(&got, "id = ?", store.ID).Error)
	assert.Equal(t, int64(100), got.PointsTotal)
}

func TestAutoClaim_CreatesOnceAtInAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t, 1000)
	reward := f.createReward(t, 400, true)

	_, err := f.reward.UpsertStock(ctx, domain.UpsertStockRequest{
		DistributorID: "dist-1",
		RewardID:      reward.ID,
		CountryID:     "EC",
		Quantity:      5,
	})
	require.NoError(t, err)

	require.NoError(t, f.reward.AutoClaimEligible(ctx, store.ID))

	claims, err := f.reward.ListClaims(ctx, domain.ClaimFilter{StoreID: store.ID})
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, domain.ClaimInAssignment, claims[0].Status)
	assert.Equal(t, reward.ID, claims[0].RewardID)

	var got storedomain.Store
	require.NoError(t, f.db.First(&got, "id = ?", store.ID).Error)
	assert.Equal(t, int64(600), got.PointsTotal)

	// An in_assignment claim holds a reservation like any assigned claim.
	stock := f.stock(t, reward.ID)
	assert.Equal(t, int64(5), stock.Quantity)
	assert.Equal(t, int64(1), stock.Reserved)

	// Re-running does not stack a second claim for the same reward.
	require.NoError(t, f.reward.AutoClaimEligible(ctx, store.ID))
	claims, err = f.reward.ListClaims(ctx, domain.ClaimFilter{StoreID: store.ID})
	require.NoError(t, err)
	assert.Len(t, claims, 1)
	stock = f.stock(t, reward.ID)
	assert.Equal(t, int64(1), stock.Reserved)

	// Delivering the auto-claim consumes its own reservation.
	_, err = f.reward.UpdateStatus(ctx, claims[0].ID, domain.ClaimInTransit)
	require.NoError(t, err)
	_, err = f.reward.UpdateStatus(ctx, claims[0].ID, domain.ClaimDelivered)
	require.NoError(t, err)

	stock = f.stock(t, reward.ID)
	assert.Equal(t, int64(4), stock.Quantity)
	assert.Equal(t, int64(0), stock.Reserved)
}

func TestAutoClaim_MissingStockRowStillClaims(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t, 1000)
	f.createReward(t, 400, true)

	// No stock row at all: the claim is still created and points deducted.
	require.NoError(t, f.reward.AutoClaimEligible(ctx, store.ID))

	claims, err := f.reward.ListClaims(ctx, domain.ClaimFilter{StoreID: store.ID})
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, domain.ClaimInAssignment, claims[0].Status)

	var got storedomain.Store
	require.NoError(t, f.db.First(&got, "id = ?", store.ID).Error)
	assert.Equal(t, int64(600), got.PointsTotal)
}

func TestAutoClaim_SkipsUnaffordableRewards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t, 100)
	f.createReward(t, 400, true)

	require.NoError(t, f.reward.AutoClaimEligible(ctx, store.ID))

	claims, err := f.reward.ListClaims(ctx, domain.ClaimFilter{StoreID: store.ID})
	require.NoError(t, err)
	assert.Empty(t, claims)
}

func TestUpdateStatus_DeliveryConsumesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t, 500)
	reward := f.createReward(t, 300, false)

	_, err := f.reward.UpsertStock(ctx, domain.UpsertStockRequest{
		DistributorID: "dist-1",
		RewardID:      reward.ID,
		CountryID:     "EC",
		Quantity:      10,
	})
	require.NoError(t, err)

	resp, err := f.reward.Claim(ctx, store.ID, reward.ID)
	require.NoError(t, err)

	assigned, err := f.reward.AssignPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, assigned)

	stock := f.stock(t, reward.ID)
	assert.Equal(t, int64(10), stock.Quantity)
	assert.Equal(t, int64(1), stock.Reserved)

	// Pretend two more units were reserved by other claims.
	require.NoError(t, f.db.Model(&domain.DistributorRewardStock{}).
		Where("id = ?", stock.ID).
		Update("reserved", 3).Error)

	_, err = f.reward.UpdateStatus(ctx, resp.Claim.ID, domain.ClaimInTransit)
	require.NoError(t, err)

	delivered, err := f.reward.UpdateStatus(ctx, resp.Claim.ID, domain.ClaimDelivered)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimDelivered, delivered.Status)
	require.NotNil(t, delivered.DeliveredAt)

	// Delivery hands over one reserved unit: quantity and reserved both drop.
	stock = f.stock(t, reward.ID)
	assert.Equal(t, int64(9), stock.Quantity)
	assert.Equal(t, int64(2), stock.Reserved)
}

func TestUpdateStatus_InvalidTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t, 500)
	reward := f.createReward(t, 300, false)

	resp, err := f.reward.Claim(ctx, store.ID, reward.ID)
	require.NoError(t, err)

	// pending cannot jump straight to delivered.
	_, err = f.reward.UpdateStatus(ctx, resp.Claim.ID, domain.ClaimDelivered)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.reward.UpdateStatus(ctx, resp.Claim.ID, domain.ClaimRejected)
	require.NoError(t, err)

	// Terminal states accept nothing.
	_, err = f.reward.UpdateStatus(ctx, resp.Claim.ID, domain.ClaimInTransit)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRate_RequiresDelivered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t, 500)
	reward := f.createReward(t, 300, false)

	resp, err := f.reward.Claim(ctx, store.ID, reward.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.reward.Rate(ctx, resp.Claim.ID, 5), domain.ErrNotDelivered)
	assert.ErrorIs(t, f.reward.Rate(ctx, resp.Claim.ID, 0), domain.ErrInvalidRating)
	assert.ErrorIs(t, f.reward.Rate(ctx, resp.Claim.ID, 6), domain.ErrInvalidRating)

	_, err = f.reward.UpdateStatus(ctx, resp.Claim.ID, domain.ClaimInTransit)
	require.NoError(t, err)
	_, err = f.reward.UpdateStatus(ctx, resp.Claim.ID, domain.ClaimDelivered)
	require.NoError(t, err)

	require.NoError(t, f.reward.Rate(ctx, resp.Claim.ID, 4))

	claim, err := f.reward.GetClaim(ctx, resp.Claim.ID)
	require.NoError(t, err)
	require.NotNil(t, claim.Rating)
	assert.Equal(t, int16(4), *claim.Rating)
}

func TestAssignPending_NoStockLeavesClaimPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t, 500)
	reward := f.createReward(t, 300, false)

	resp, err := f.reward.Claim(ctx, store.ID, reward.ID)
	require.NoError(t, err)

	assigned, err := f.reward.AssignPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, assigned)

	claim, err := f.reward.GetClaim(ctx, resp.Claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimPending, claim.Status)
}

func TestExpirePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t, 500)
	reward := f.createReward(t, 300, false)

	resp, err := f.reward.Claim(ctx, store.ID, reward.ID)
	require.NoError(t, err)

	// Backdate the claim past the cutoff.
	require.NoError(t, f.db.Model(&domain.RewardClaim{}).
		Where("id = ?", resp.Claim.ID).
		Update("claimed_at", time.Now().UTC().Add(-31*24*time.Hour)).Error)

	expired, err := f.reward.ExpirePending(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	claim, err := f.reward.GetClaim(ctx, resp.Claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimExpired, claim.Status)

	// Expiry refunds the deducted points through the ledger.
	var got storedomain.Store
	require.NoError(t, f.db.First(&got, "id = ?", store.ID).Error)
	assert.Equal(t, int64(500), got.PointsTotal)

	var refunds []pointsdomain.PointTransaction
	require.NoError(t, f.db.
		Where("reward_claim_id = ? AND points_change > 0", resp.Claim.ID).
		Find(&refunds).Error)
	require.Len(t, refunds, 1)
	assert.Equal(t, int64(300), refunds[0].PointsChange)

	// A second run finds nothing left to expire or refund.
	expired, err = f.reward.ExpirePending(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, expired)
	require.NoError(t, f.db.First(&got, "id = ?", store.ID).Error)
	assert.Equal(t, int64(500), got.PointsTotal)
}

func TestUpsertStock_KeepsReservedAndRejectsShrinkBelowIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reward := f.createReward(t, 300, false)

	_, err := f.reward.UpsertStock(ctx, domain.UpsertStockRequest{
		DistributorID: "dist-1",
		RewardID:      reward.ID,
		CountryID:     "EC",
		Quantity:      10,
	})
	require.NoError(t, err)

	stock := f.stock(t, reward.ID)
	require.NoError(t, f.db.Model(&domain.DistributorRewardStock{}).
		Where("id = ?", stock.ID).
		Update("reserved", 4).Error)

	// Restock keeps the reserved count.
	updated, err := f.reward.UpsertStock(ctx, domain.UpsertStockRequest{
		DistributorID: "dist-1",
		RewardID:      reward.ID,
		CountryID:     "EC",
		Quantity:      20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(20), updated.Quantity)
	assert.Equal(t, int64(4), updated.Reserved)
	assert.Equal(t, stock.ID, updated.ID)

	// Shrinking below reserved is refused.
	_, err = f.reward.UpsertStock(ctx, domain.UpsertStockRequest{
		DistributorID: "dist-1",
		RewardID:      reward.ID,
		CountryID:     "EC",
		Quantity:      3,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}
