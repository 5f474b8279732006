package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	catalogdomain "github.com/smallbiznis/cielo/internal/catalog/domain"
	catalogrepository "github.com/smallbiznis/cielo/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/cielo/internal/catalog/service"
	"github.com/smallbiznis/cielo/internal/points/domain"
	"github.com/smallbiznis/cielo/internal/points/repository"
	storedomain "github.com/smallbiznis/cielo/internal/store/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	genID   *snowflake.Node
	points  domain.Service
	catalog catalogdomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&storedomain.Store{},
		&domain.PointTransaction{},
		&catalogdomain.GlobalProduct{},
		&catalogdomain.CountryProduct{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	catalogSvc := catalogservice.New(catalogservice.Params{
		DB:    conn,
		Log:   log,
		GenID: node,
		Repo:  catalogrepository.Provide(),
	})

	pointsSvc := New(Params{
		DB:      conn,
		Log:     log,
		GenID:   node,
		Repo:    repository.Provide(),
		Catalog: catalogSvc,
	})

	return &fixture{db: conn, genID: node, points: pointsSvc, catalog: catalogSvc}
}

func (f *fixture) createStore(t *testing.T) storedomain.Store {
	t.Helper()
	store := storedomain.Store{
		ID:        f.genID.Generate(),
		StoreCode: "LIMA-NORTE-000001",
		Name:      "Bodega San Martin",
		CountryID: "PE",
		Level:     storedomain.LevelBronze,
		Status:    storedomain.StoreActive,
	}
	require.NoError(t, f.db.Create(&store).Error)
	return store
}

func TestCalculate_CountryOverrideWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.catalog.UpsertGlobalProduct(ctx, catalogdomain.UpsertGlobalProductRequest{
		SKU: "AGUA-500", Name: "Agua Cielo 500ml", PointsPerUnit: 20,
	})
	require.NoError(t, err)
	_, err = f.catalog.UpsertCountryProduct(ctx, catalogdomain.UpsertCountryProductRequest{
		CountryID: "PE", SKU: "AGUA-500", PointsPerUnit: 125,
	})
	require.NoError(t, err)

	total, err := f.points.Calculate(ctx, "PE", []domain.Line{{SKU: "AGUA-500", Quantity: 1}}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(125), total)

	// Another country sees the global value.
	total, err = f.points.Calculate(ctx, "EC", []domain.Line{{SKU: "AGUA-500", Quantity: 2}}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(40), total)
}

func TestCalculate_FallbackBySubstring(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// No catalog rows at all: demo SKUs resolve by substring, unknown SKUs
	// earn nothing.
	total, err := f.points.Calculate(ctx, "PE", []domain.Line{
		{SKU: "AGUA-1000-PE", Quantity: 3},
		{SKU: "GASEOSA-2L", Quantity: 10},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(105), total)
}

func TestCalculate_EmptyLinesUsesTotalAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	total, err := f.points.Calculate(ctx, "PE", nil, 249.9)
	require.NoError(t, err)
	assert.Equal(t, int64(249), total)

	total, err = f.points.Calculate(ctx, "PE", nil, -5)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestCalculate_SkipsNonPositiveQuantities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	total, err := f.points.Calculate(ctx, "PE", []domain.Line{
		{SKU: "AGUA-500", Quantity: 0},
		{SKU: "AGUA-500", Quantity: -2},
		{SKU: "AGUA-500", Quantity: 1},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(20), total)
}

func TestRecord_AppliesBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t)

	_, err := f.points.Record(ctx, nil, domain.RecordRequest{
		StoreID:      store.ID,
		Type:         domain.TypePurchase,
		PointsChange: 100,
	})
	require.NoError(t, err)

	// Redemptions reduce the redeemable total but leave the month counter.
	_, err = f.points.Record(ctx, nil, domain.RecordRequest{
		StoreID:      store.ID,
		Type:         domain.TypeRewardRedemption,
		PointsChange: -40,
	})
	require.NoError(t, err)

	var got storedomain.Store
	require.NoError(t, f.db.First(&got, "id = ?", store.ID).Error)
	assert.Equal(t, int64(60), got.PointsTotal)
	assert.Equal(t, int64(100), got.PointsMonth)
}

func TestRecord_UnknownStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.points.Record(ctx, nil, domain.RecordRequest{
		StoreID:      f.genID.Generate(),
		Type:         domain.TypePurchase,
		PointsChange: 10,
	})
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)
}

func TestDeleteTransaction_RevertsBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t)

	txn, err := f.points.Record(ctx, nil, domain.RecordRequest{
		StoreID:      store.ID,
		Type:         domain.TypePurchase,
		PointsChange: 100,
	})
	require.NoError(t, err)

	require.NoError(t, f.points.DeleteTransaction(ctx, txn.ID))

	var got storedomain.Store
	require.NoError(t, f.db.First(&got, "id = ?", store.ID).Error)
	assert.Equal(t, int64(0), got.PointsTotal)
	assert.Equal(t, int64(0), got.PointsMonth)

	var count int64
	require.NoError(t, f.db.Model(&domain.PointTransaction{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestDeleteByInvoice_RemovesAllEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t)
	invoiceID := f.genID.Generate()

	for _, change := range []int64{50, 30} {
		_, err := f.points.Record(ctx, nil, domain.RecordRequest{
			StoreID:      store.ID,
			Type:         domain.TypePurchase,
			PointsChange: change,
			InvoiceID:    &invoiceID,
		})
		require.NoError(t, err)
	}

	require.NoError(t, f.points.DeleteByInvoice(ctx, nil, invoiceID))

	var got storedomain.Store
	require.NoError(t, f.db.First(&got, "id = ?", store.ID).Error)
	assert.Equal(t, int64(0), got.PointsTotal)
	assert.Equal(t, int64(0), got.PointsMonth)
}

func TestResetMonth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t)

	_, err := f.points.Record(ctx, nil, domain.RecordRequest{
		StoreID:      store.ID,
		Type:         domain.TypePurchase,
		PointsChange: 75,
	})
	require.NoError(t, err)

	require.NoError(t, f.points.ResetMonth(ctx))

	var got storedomain.Store
	require.NoError(t, f.db.First(&got, "id = ?", store.ID).Error)
	assert.Equal(t, int64(75), got.PointsTotal)
	assert.Equal(t, int64(0), got.PointsMonth)
}
