package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	catalogdomain "github.com/smallbiznis/cielo/internal/catalog/domain"
	catalogrepository "github.com/smallbiznis/cielo/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/cielo/internal/catalog/service"
	"github.com/smallbiznis/cielo/internal/clock"
	pointsdomain "github.com/smallbiznis/cielo/internal/points/domain"
	pointsrepository "github.com/smallbiznis/cielo/internal/points/repository"
	pointsservice "github.com/smallbiznis/cielo/internal/points/service"
	rewarddomain "github.com/smallbiznis/cielo/internal/reward/domain"
	rewardrepository "github.com/smallbiznis/cielo/internal/reward/repository"
	rewardservice "github.com/smallbiznis/cielo/internal/reward/service"
	storedomain "github.com/smallbiznis/cielo/internal/store/domain"
	storerepository "github.com/smallbiznis/cielo/internal/store/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	genID     *snowflake.Node
	clock     *clock.FakeClock
	scheduler *Scheduler
	reward    rewarddomain.Service
	catalog   catalogdomain.Service
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
		&rewarddomain.RewardClaim{},
		&rewarddomain.DistributorRewardStock{},
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
	rewardSvc := rewardservice.New(rewardservice.Params{
		DB:        conn,
		Log:       log,
		GenID:     node,
		Repo:      rewardrepository.Provide(),
		StoreRepo: storerepository.Provide(),
		Catalog:   catalogSvc,
		Points:    pointsSvc,
	})

	fake := clock.NewFakeClock(time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC))
	sched, err := New(Params{
		DB:        conn,
		Log:       log,
		RewardSvc: rewardSvc,
		PointsSvc: pointsSvc,
		Clock:     fake,
	})
	require.NoError(t, err)

	return &fixture{db: conn, genID: node, clock: fake, scheduler: sched, reward: rewardSvc, catalog: catalogSvc}
}

func (f *fixture) createStore(t *testing.T, points int64) storedomain.Store {
	t.Helper()
	store := storedomain.Store{
		ID:            f.genID.Generate(),
		StoreCode:     "BOGOTA-CHAPINERO-000004",
		Name:          "Minimercado La 72",
		CountryID:     "CO",
		DistributorID: "dist-9",
		PointsTotal:   points,
		PointsMonth:   points,
		Level:         storedomain.LevelBronze,
		Status:        storedomain.StoreActive,
	}
	require.NoError(t, f.db.Create(&store).Error)
	return store
}

func (f *fixture) createReward(t *testing.T, points int64) catalogdomain.CountryReward {
	t.Helper()
	reward, err := f.catalog.CreateCountryReward(context.Background(), catalogdomain.CreateCountryRewardRequest{
		CountryID:      "CO",
		Name:           "Caja de vasos",
		PointsRequired: points,
	})
	require.NoError(t, err)
	return reward
}

func TestRunOnce_AssignsClaimsWithStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t, 1000)
	reward := f.createReward(t, 300)

	_, err := f.reward.UpsertStock(ctx, rewarddomain.UpsertStockRequest{
		DistributorID: "dist-9",
		RewardID:      reward.ID,
		CountryID:     "CO",
		Quantity:      5,
	})
	require.NoError(t, err)

	resp, err := f.reward.Claim(ctx, store.ID, reward.ID)
	require.NoError(t, err)

	require.NoError(t, f.scheduler.RunOnce(ctx))

	claim, err := f.reward.GetClaim(ctx, resp.Claim.ID)
	require.NoError(t, err)
	assert.Equal(t, rewarddomain.ClaimInAssignment, claim.Status)

	var stock rewarddomain.DistributorRewardStock
	require.NoError(t, f.db.First(&stock, "reward_id = ?", reward.ID).Error)
	assert.Equal(t, int64(5), stock.Quantity)
	assert.Equal(t, int64(1), stock.Reserved)
}

func TestRunOnce_LeavesClaimsWithoutStockPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t, 1000)
	reward := f.createReward(t, 300)

	resp, err := f.reward.Claim(ctx, store.ID, reward.ID)
	require.NoError(t, err)

	require.NoError(t, f.scheduler.RunOnce(ctx))

	claim, err := f.reward.GetClaim(ctx, resp.Claim.ID)
	require.NoError(t, err)
	assert.Equal(t, rewarddomain.ClaimPending, claim.Status)
}

func TestRunOnce_ExpiresStaleClaims(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t, 1000)
	reward := f.createReward(t, 300)

	resp, err := f.reward.Claim(ctx, store.ID, reward.ID)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&rewarddomain.RewardClaim{}).
		Where("id = ?", resp.Claim.ID).
		Update("claimed_at", time.Now().UTC().Add(-45*24*time.Hour)).Error)

	require.NoError(t, f.scheduler.RunOnce(ctx))

	claim, err := f.reward.GetClaim(ctx, resp.Claim.ID)
	require.NoError(t, err)
	assert.Equal(t, rewarddomain.ClaimExpired, claim.Status)

	// The deducted points came back with the expiry.
	var got storedomain.Store
	require.NoError(t, f.db.First(&got, "id = ?", store.ID).Error)
	assert.Equal(t, int64(1000), got.PointsTotal)
}

func TestResetMonthJob_FiresOnceAcrossBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t, 800)

	// Same month: nothing happens.
	require.NoError(t, f.scheduler.ResetMonthJob(ctx))
	var got storedomain.Store
	require.NoError(t, f.db.First(&got, "id = ?", store.ID).Error)
	assert.Equal(t, int64(800), got.PointsMonth)

	// Cross into February.
	f.clock.Advance(20 * 24 * time.Hour)
	require.NoError(t, f.scheduler.ResetMonthJob(ctx))
	require.NoError(t, f.db.First(&got, "id = ?", store.ID).Error)
	assert.Equal(t, int64(0), got.PointsMonth)
	assert.Equal(t, int64(800), got.PointsTotal)

	// New earnings within February survive the next run.
	require.NoError(t, f.db.Model(&storedomain.Store{}).
		Where("id = ?", store.ID).
		Update("points_month", 120).Error)
	require.NoError(t, f.scheduler.ResetMonthJob(ctx))
	require.NoError(t, f.db.First(&got, "id = ?", store.ID).Error)
	assert.Equal(t, int64(120), got.PointsMonth)
}

func TestIsJobEnabled(t *testing.T) {
	f := newFixture(t)

	// Empty list: everything runs.
	assert.True(t, f.scheduler.isJobEnabled("assign_rewards"))

	f.scheduler.cfg.EnabledJobs = []string{"Assign_Rewards"}
	assert.True(t, f.scheduler.isJobEnabled("assign_rewards"))
	assert.False(t, f.scheduler.isJobEnabled("reset_month"))
}
