package service

import (
	"context"
	"math"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/cielo/internal/catalog/domain"
	"github.com/smallbiznis/cielo/internal/points/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Catalog catalogdomain.Service
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	catalog catalogdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("points.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		catalog: p.Catalog,
	}
}

func (s *Service) Calculate(ctx context.Context, countryID string, lines []domain.Line, totalAmount float64) (int64, error) {
	if len(lines) == 0 {
		// Unitemized invoices earn one point per currency unit.
		if totalAmount <= 0 {
			return 0, nil
		}
		return int64(math.Floor(totalAmount)), nil
	}

	var total int64
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		perUnit, err := s.catalog.ResolvePointsPerUnit(ctx, countryID, line.SKU)
		if err != nil {
			return 0, err
		}
		total += perUnit * line.Quantity
	}
	return total, nil
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, req domain.RecordRequest) (domain.PointTransaction, error) {
	if req.StoreID == 0 || req.Type == "" {
		return domain.PointTransaction{}, domain.ErrInvalidArgument
	}
	if tx == nil {
		tx = s.db
	}

	txn := domain.PointTransaction{
		ID:            s.genID.Generate(),
		StoreID:       req.StoreID,
		Type:          req.Type,
		PointsChange:  req.PointsChange,
		InvoiceID:     req.InvoiceID,
		RewardClaimID: req.RewardClaimID,
	}
	if err := s.repo.Insert(ctx, tx, &txn); err != nil {
		return domain.PointTransaction{}, err
	}

	// Earned points count toward the month leaderboard; redemptions only
	// draw down the redeemable total.
	deltaMonth := req.PointsChange
	if deltaMonth < 0 {
		deltaMonth = 0
	}
	if err := s.repo.ApplyBalance(ctx, tx, req.StoreID, req.PointsChange, deltaMonth); err != nil {
		return domain.PointTransaction{}, err
	}
	return txn, nil
}

func (s *Service) DeleteTransaction(ctx context.Context, id snowflake.ID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.deleteWithReversal(ctx, tx, id)
	})
}

func (s *Service) DeleteByInvoice(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) error {
	if tx == nil {
		tx = s.db
	}
	txns, err := s.repo.FindByInvoice(ctx, tx, invoiceID)
	if err != nil {
		return err
	}
	for _, txn := range txns {
		if err := s.deleteWithReversal(ctx, tx, txn.ID); err != nil {
			return err
		}
	}
	return nil
}

// deleteWithReversal removes the entry then applies the opposite of its
// signed change, so delete(record(P)) is a no-op on the balance.
func (s *Service) deleteWithReversal(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
	txn, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		return err
	}
	if txn == nil {
		return domain.ErrNotFound
	}
	if err := s.repo.Delete(ctx, tx, id); err != nil {
		return err
	}
	return s.repo.ApplyBalance(ctx, tx, txn.StoreID, -txn.PointsChange, -txn.PointsChange)
}

func (s *Service) ListByStore(ctx context.Context, storeID snowflake.ID, limit int) ([]domain.PointTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListByStore(ctx, s.db, storeID, limit)
}

func (s *Service) ResetMonth(ctx context.Context) error {
	return s.repo.ResetMonth(ctx, s.db)
}
