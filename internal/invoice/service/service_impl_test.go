package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/cielo/internal/audit/domain"
	auditrepository "github.com/smallbiznis/cielo/internal/audit/repository"
	auditservice "github.com/smallbiznis/cielo/internal/audit/service"
	catalogdomain "github.com/smallbiznis/cielo/internal/catalog/domain"
	catalogrepository "github.com/smallbiznis/cielo/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/cielo/internal/catalog/service"
	"github.com/smallbiznis/cielo/internal/invoice/domain"
	"github.com/smallbiznis/cielo/internal/invoice/repository"
	pointsdomain "github.com/smallbiznis/cielo/internal/points/domain"
	pointsrepository "github.com/smallbiznis/cielo/internal/points/repository"
	pointsservice "github.com/smallbiznis/cielo/internal/points/service"
	rewarddomain "github.com/smallbiznis/cielo/internal/reward/domain"
	storedomain "github.com/smallbiznis/cielo/internal/store/domain"
	storerepository "github.com/smallbiznis/cielo/internal/store/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type rewardMock struct {
	mock.Mock
}

func (m *rewardMock) AutoClaimEligible(ctx context.Context, storeID snowflake.ID) error {
	args := m.Called(ctx, storeID)
	return args.Error(0)
}

func (m *rewardMock) Claim(context.Context, snowflake.ID, snowflake.ID) (rewarddomain.ClaimResponse, error) {
	return rewarddomain.ClaimResponse{}, nil
}
func (m *rewardMock) UpdateStatus(context.Context, snowflake.ID, rewarddomain.ClaimStatus) (rewarddomain.RewardClaim, error) {
	return rewarddomain.RewardClaim{}, nil
}
func (m *rewardMock) Rate(context.Context, snowflake.ID, int16) error { return nil }
func (m *rewardMock) GetClaim(context.Context, snowflake.ID) (rewarddomain.RewardClaim, error) {
	return rewarddomain.RewardClaim{}, nil
}
func (m *rewardMock) ListClaims(context.Context, rewarddomain.ClaimFilter) ([]rewarddomain.RewardClaim, error) {
	return nil, nil
}
func (m *rewardMock) AssignPending(context.Context) (int, error)                 { return 0, nil }
func (m *rewardMock) ExpirePending(context.Context, time.Duration) (int, error)  { return 0, nil }
func (m *rewardMock) UpsertStock(context.Context, rewarddomain.UpsertStockRequest) (rewarddomain.DistributorRewardStock, error) {
	return rewarddomain.DistributorRewardStock{}, nil
}
func (m *rewardMock) ListStock(context.Context, string) ([]rewarddomain.DistributorRewardStock, error) {
	return nil, nil
}

type fixture struct {
	db      *gorm.DB
	genID   *snowflake.Node
	invoice domain.Service
	reward  *rewardMock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&storedomain.Store{},
		&domain.Invoice{},
		&pointsdomain.PointTransaction{},
		&catalogdomain.GlobalProduct{},
		&catalogdomain.CountryProduct{},
		&auditdomain.AuditLog{},
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
	auditSvc := auditservice.NewService(auditservice.Params{
		DB: conn, Log: log, GenID: node, Repo: auditrepository.Provide(),
	})

	reward := &rewardMock{}
	reward.On("AutoClaimEligible", mock.Anything, mock.Anything).Return(nil).Maybe()

	invoiceSvc := New(Params{
		DB:        conn,
		Log:       log,
		GenID:     node,
		Repo:      repository.Provide(),
		Points:    pointsSvc,
		StoreRepo: storerepository.Provide(),
		Reward:    reward,
		Audit:     auditSvc,
	})

	return &fixture{db: conn, genID: node, invoice: invoiceSvc, reward: reward}
}

func (f *fixture) createStore(t *testing.T) storedomain.Store {
	t.Helper()
	store := storedomain.Store{
		ID:        f.genID.Generate(),
		StoreCode: "LIMA-SUR-000002",
		Name:      "Bodega Rosita",
		CountryID: "PE",
		Level:     storedomain.LevelBronze,
		Status:    storedomain.StoreActive,
	}
	require.NoError(t, f.db.Create(&store).Error)
	return store
}

func (f *fixture) storeBalance(t *testing.T, id snowflake.ID) (int64, int64) {
	t.Helper()
	var store storedomain.Store
	require.NoError(t, f.db.First(&store, "id = ?", id).Error)
	return store.PointsTotal, store.PointsMonth
}

func TestConfirm_ComputesPointsWithoutApplying(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t)

	resp, err := f.invoice.Confirm(ctx, domain.ConfirmRequest{
		StoreID:       store.ID,
		CountryID:     "PE",
		InvoiceNumber: "F001-000123",
		Products:      []pointsdomain.Line{{SKU: "AGUA-500", Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(80), resp.PointsEarned)
	assert.Equal(t, domain.StatusPending, resp.Status)

	// Pending invoices have not touched the balance yet.
	total, month := f.storeBalance(t, store.ID)
	assert.Equal(t, int64(0), total)
	assert.Equal(t, int64(0), month)
}

func TestConfirm_DuplicateNumberSameCountry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t)

	req := domain.ConfirmRequest{
		StoreID:       store.ID,
		CountryID:     "PE",
		InvoiceNumber: "F001-000777",
		TotalAmount:   100,
	}
	_, err := f.invoice.Confirm(ctx, req)
	require.NoError(t, err)

	_, err = f.invoice.Confirm(ctx, req)
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	// Same number in another country is a different invoice.
	req.CountryID = "EC"
	_, err = f.invoice.Confirm(ctx, req)
	assert.NoError(t, err)
}

func TestDecide_ApproveAppliesPointsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t)

	resp, err := f.invoice.Confirm(ctx, domain.ConfirmRequest{
		StoreID:       store.ID,
		CountryID:     "PE",
		InvoiceNumber: "F001-000200",
		Products:      []pointsdomain.Line{{SKU: "AGUA-1000", Quantity: 2}},
	})
	require.NoError(t, err)

	decided, err := f.invoice.Decide(ctx, domain.DecideRequest{InvoiceID: resp.InvoiceID, Approve: true})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, decided.Status)

	total, month := f.storeBalance(t, store.ID)
	assert.Equal(t, int64(70), total)
	assert.Equal(t, int64(70), month)

	// A second decision on the same invoice fails and does not double-apply.
	_, err = f.invoice.Decide(ctx, domain.DecideRequest{InvoiceID: resp.InvoiceID, Approve: true})
	assert.ErrorIs(t, err, domain.ErrNotPending)

	total, _ = f.storeBalance(t, store.ID)
	assert.Equal(t, int64(70), total)

	f.reward.AssertCalled(t, "AutoClaimEligible", mock.Anything, store.ID)
}

func TestDecide_ApproveWithOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t)

	resp, err := f.invoice.Confirm(ctx, domain.ConfirmRequest{
		StoreID:       store.ID,
		CountryID:     "PE",
		InvoiceNumber: "F001-000300",
		Products:      []pointsdomain.Line{{SKU: "AGUA-500", Quantity: 1}},
	})
	require.NoError(t, err)

	override := int64(500)
	decided, err := f.invoice.Decide(ctx, domain.DecideRequest{
		InvoiceID:      resp.InvoiceID,
		Approve:        true,
		PointsOverride: &override,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(500), decided.PointsEarned)

	total, _ := f.storeBalance(t, store.ID)
	assert.Equal(t, int64(500), total)
}

func TestDecide_RejectRequiresReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t)

	resp, err := f.invoice.Confirm(ctx, domain.ConfirmRequest{
		StoreID:       store.ID,
		CountryID:     "PE",
		InvoiceNumber: "F001-000400",
		TotalAmount:   50,
	})
	require.NoError(t, err)

	_, err = f.invoice.Decide(ctx, domain.DecideRequest{InvoiceID: resp.InvoiceID, Approve: false})
	assert.ErrorIs(t, err, domain.ErrReasonRequired)

	decided, err := f.invoice.Decide(ctx, domain.DecideRequest{
		InvoiceID: resp.InvoiceID,
		Approve:   false,
		Reason:    "illegible photo",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, decided.Status)
	require.NotNil(t, decided.RejectedReason)
	assert.Equal(t, "illegible photo", *decided.RejectedReason)

	// Rejection never touches the balance.
	total, _ := f.storeBalance(t, store.ID)
	assert.Equal(t, int64(0), total)
}

func TestDelete_RevertsAppliedPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t)

	resp, err := f.invoice.Confirm(ctx, domain.ConfirmRequest{
		StoreID:       store.ID,
		CountryID:     "PE",
		InvoiceNumber: "F001-000500",
		Products:      []pointsdomain.Line{{SKU: "AGUA-500", Quantity: 5}},
	})
	require.NoError(t, err)

	_, err = f.invoice.Decide(ctx, domain.DecideRequest{InvoiceID: resp.InvoiceID, Approve: true})
	require.NoError(t, err)

	require.NoError(t, f.invoice.Delete(ctx, resp.InvoiceID))

	total, month := f.storeBalance(t, store.ID)
	assert.Equal(t, int64(0), total)
	assert.Equal(t, int64(0), month)

	_, err = f.invoice.GetByID(ctx, resp.InvoiceID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting the invoice also removed its ledger entries, so the number can
	// be submitted again.
	_, err = f.invoice.Confirm(ctx, domain.ConfirmRequest{
		StoreID:       store.ID,
		CountryID:     "PE",
		InvoiceNumber: "F001-000500",
		TotalAmount:   10,
	})
	assert.NoError(t, err)
}

func TestList_FiltersByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t)

	for _, number := range []string{"F001-000601", "F001-000602"} {
		_, err := f.invoice.Confirm(ctx, domain.ConfirmRequest{
			StoreID:       store.ID,
			CountryID:     "PE",
			InvoiceNumber: number,
			TotalAmount:   10,
		})
		require.NoError(t, err)
	}

	pending, err := f.invoice.List(ctx, domain.ListFilter{StoreID: store.ID, Status: domain.StatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	approved, err := f.invoice.List(ctx, domain.ListFilter{StoreID: store.ID, Status: domain.StatusApproved})
	require.NoError(t, err)
	assert.Empty(t, approved)
}

func TestDecide_ApproveRechecksDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.createStore(t)

	resp, err := f.invoice.Confirm(ctx, domain.ConfirmRequest{
		StoreID:       store.ID,
		CountryID:     "PE",
		InvoiceNumber: "F001-000777",
		Products:      []pointsdomain.Line{{SKU: "AGUA-500", Quantity: 4}},
	})
	require.NoError(t, err)

	// A second pending copy of the same receipt, written straight to the
	// table the way two racing confirmations would leave it.
	twin := domain.Invoice{
		ID:            f.genID.Generate(),
		StoreID:       store.ID,
		CountryID:     "PE",
		InvoiceNumber: "F001-000777",
		Products:      datatypes.NewJSONSlice([]pointsdomain.Line{{SKU: "AGUA-500", Quantity: 4}}),
		PointsEarned:  80,
		Status:        domain.StatusPending,
	}
	require.NoError(t, f.db.Create(&twin).Error)

	_, err = f.invoice.Decide(ctx, domain.DecideRequest{InvoiceID: resp.InvoiceID, Approve: true})
	require.NoError(t, err)

	total, _ := f.storeBalance(t, store.ID)
	assert.Equal(t, int64(80), total)

	// The twin's approval hits the in-transaction re-check.
	_, err = f.invoice.Decide(ctx, domain.DecideRequest{InvoiceID: twin.ID, Approve: true})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	var got domain.Invoice
	require.NoError(t, f.db.First(&got, "id = ?", twin.ID).Error)
	assert.Equal(t, domain.StatusPending, got.Status)
	total, _ = f.storeBalance(t, store.ID)
	assert.Equal(t, int64(80), total)

	// Rejecting the twin is still allowed; that is how the race resolves.
	rejected, err := f.invoice.Decide(ctx, domain.DecideRequest{
		InvoiceID: twin.ID,
		Approve:   false,
		Reason:    "duplicate of an approved receipt",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)
}
