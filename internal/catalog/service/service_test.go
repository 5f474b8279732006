package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/cielo/internal/cache"
	"github.com/smallbiznis/cielo/internal/catalog/domain"
	"github.com/smallbiznis/cielo/internal/catalog/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&domain.GlobalProduct{},
		&domain.CountryProduct{},
		&domain.GlobalReward{},
		&domain.CountryReward{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repository.Provide(),
		Resolver: cache.NewPointsResolverCache(),
	})
	return svc, conn
}

func TestResolvePointsPerUnit_TierOrder(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.UpsertGlobalProduct(ctx, domain.UpsertGlobalProductRequest{
		SKU: "AGUA-2500", Name: "Agua Cielo 2.5L", PointsPerUnit: 50,
	})
	require.NoError(t, err)
	_, err = svc.UpsertCountryProduct(ctx, domain.UpsertCountryProductRequest{
		CountryID: "PE", SKU: "AGUA-2500", PointsPerUnit: 60,
	})
	require.NoError(t, err)

	// Country override first.
	points, err := svc.ResolvePointsPerUnit(ctx, "PE", "AGUA-2500")
	require.NoError(t, err)
	assert.Equal(t, int64(60), points)

	// Global row for everyone else.
	points, err = svc.ResolvePointsPerUnit(ctx, "CO", "AGUA-2500")
	require.NoError(t, err)
	assert.Equal(t, int64(50), points)

	// Demo fallback by substring when no row exists.
	points, err = svc.ResolvePointsPerUnit(ctx, "CO", "AGUA-500-CO")
	require.NoError(t, err)
	assert.Equal(t, int64(20), points)

	// Unknown SKUs earn nothing.
	points, err = svc.ResolvePointsPerUnit(ctx, "CO", "GASEOSA-2L")
	require.NoError(t, err)
	assert.Equal(t, int64(0), points)
}

func TestResolvePointsPerUnit_LocalSKU(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.UpsertCountryProduct(ctx, domain.UpsertCountryProductRequest{
		CountryID: "EC", SKU: "AGUA-500", LocalSKU: "CIELO-ECU-05", PointsPerUnit: 22,
	})
	require.NoError(t, err)

	points, err := svc.ResolvePointsPerUnit(ctx, "EC", "CIELO-ECU-05")
	require.NoError(t, err)
	assert.Equal(t, int64(22), points)
}

func TestResolvePointsPerUnit_UpsertInvalidatesCache(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.UpsertCountryProduct(ctx, domain.UpsertCountryProductRequest{
		CountryID: "PE", SKU: "AGUA-500", PointsPerUnit: 20,
	})
	require.NoError(t, err)

	points, err := svc.ResolvePointsPerUnit(ctx, "PE", "AGUA-500")
	require.NoError(t, err)
	assert.Equal(t, int64(20), points)

	// The resolve above primed the cache; the upsert must evict it.
	_, err = svc.UpsertCountryProduct(ctx, domain.UpsertCountryProductRequest{
		CountryID: "PE", SKU: "AGUA-500", PointsPerUnit: 25,
	})
	require.NoError(t, err)

	points, err = svc.ResolvePointsPerUnit(ctx, "PE", "AGUA-500")
	require.NoError(t, err)
	assert.Equal(t, int64(25), points)
}

func TestUpsertCountryProduct_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.UpsertCountryProduct(ctx, domain.UpsertCountryProductRequest{SKU: "AGUA-500"})
	assert.ErrorIs(t, err, domain.ErrInvalidCountry)

	_, err = svc.UpsertCountryProduct(ctx, domain.UpsertCountryProductRequest{CountryID: "PE"})
	assert.ErrorIs(t, err, domain.ErrInvalidSKU)

	_, err = svc.UpsertCountryProduct(ctx, domain.UpsertCountryProductRequest{
		CountryID: "PE", SKU: "AGUA-500", PointsPerUnit: -1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPoints)
}

func TestCreateCountryReward_AndAutoClaimList(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateCountryReward(ctx, domain.CreateCountryRewardRequest{
		CountryID: "PE", Name: "Pack 12 botellas", PointsRequired: 300,
	})
	require.NoError(t, err)
	auto, err := svc.CreateCountryReward(ctx, domain.CreateCountryRewardRequest{
		CountryID: "PE", Name: "Gorra Cielo", PointsRequired: 150, AutoClaim: true,
	})
	require.NoError(t, err)

	all, err := svc.ListCountryRewards(ctx, "PE")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	autoOnly, err := svc.ListAutoClaimRewards(ctx, "PE")
	require.NoError(t, err)
	require.Len(t, autoOnly, 1)
	assert.Equal(t, auto.ID, autoOnly[0].ID)

	_, err = svc.CreateCountryReward(ctx, domain.CreateCountryRewardRequest{
		CountryID: "PE", Name: "Gratis", PointsRequired: 0,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPoints)
}
