package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cielo/internal/actorctx"
	auditdomain "github.com/smallbiznis/cielo/internal/audit/domain"
	"github.com/smallbiznis/cielo/internal/invoice/domain"
	pointsdomain "github.com/smallbiznis/cielo/internal/points/domain"
	rewarddomain "github.com/smallbiznis/cielo/internal/reward/domain"
	storedomain "github.com/smallbiznis/cielo/internal/store/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Points    pointsdomain.Service
	StoreRepo storedomain.Repository
	Reward    rewarddomain.Service
	Audit     auditdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	points    pointsdomain.Service
	storeRepo storedomain.Repository
	reward    rewarddomain.Service
	audit     auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("invoice.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		points:    p.Points,
		storeRepo: p.StoreRepo,
		reward:    p.Reward,
		audit:     p.Audit,
	}
}

func (s *Service) Confirm(ctx context.Context, req domain.ConfirmRequest) (domain.ConfirmResponse, error) {
	req.InvoiceNumber = strings.TrimSpace(req.InvoiceNumber)
	req.CountryID = strings.TrimSpace(req.CountryID)
	if req.StoreID == 0 || req.InvoiceNumber == "" || req.CountryID == "" {
		return domain.ConfirmResponse{}, domain.ErrInvalidArgument
	}

	// Best effort; a store without an assigned distributor still submits.
	distributorID := ""
	if store, err := s.storeRepo.FindByID(ctx, s.db, req.StoreID); err == nil && store != nil {
		distributorID = store.DistributorID
	}

	pointsEarned, err := s.points.Calculate(ctx, req.CountryID, req.Products, req.TotalAmount)
	if err != nil {
		return domain.ConfirmResponse{}, err
	}

	invoice := domain.Invoice{
		ID:            s.genID.Generate(),
		StoreID:       req.StoreID,
		CountryID:     req.CountryID,
		InvoiceNumber: req.InvoiceNumber,
		TotalAmount:   req.TotalAmount,
		Products:      datatypes.NewJSONSlice(req.Products),
		PointsEarned:  pointsEarned,
		Status:        domain.StatusPending,
		DistributorID: distributorID,
		ImageURL:      strings.TrimSpace(req.ImageURL),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		count, err := s.repo.CountDuplicates(ctx, tx, req.InvoiceNumber, req.CountryID,
			[]domain.InvoiceStatus{domain.StatusPending, domain.StatusApproved}, 0)
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrDuplicate
		}
		return s.repo.Insert(ctx, tx, &invoice)
	})
	if err != nil {
		return domain.ConfirmResponse{}, err
	}

	return domain.ConfirmResponse{
		InvoiceID:    invoice.ID,
		PointsEarned: invoice.PointsEarned,
		Status:       invoice.Status,
	}, nil
}

func (s *Service) Decide(ctx context.Context, req domain.DecideRequest) (domain.Invoice, error) {
	if req.InvoiceID == 0 {
		return domain.Invoice{}, domain.ErrInvalidArgument
	}
	reason := strings.TrimSpace(req.Reason)
	if !req.Approve && reason == "" {
		return domain.Invoice{}, domain.ErrReasonRequired
	}

	actor, _ := actorctx.FromContext(ctx)

	var decided domain.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByID(ctx, tx, req.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}
		if invoice.Status != domain.StatusPending {
			return domain.ErrNotPending
		}

		now := time.Now().UTC()
		if req.Approve {
			// Re-check the duplicate rule at approval time: if a copy of
			// this receipt was already approved, this one must not earn
			// points too. Pending copies don't veto, or two racing
			// confirmations could block each other's approval forever.
			dupes, err := s.repo.CountDuplicates(ctx, tx, invoice.InvoiceNumber, invoice.CountryID,
				[]domain.InvoiceStatus{domain.StatusApproved}, invoice.ID)
			if err != nil {
				return err
			}
			if dupes > 0 {
				return domain.ErrDuplicate
			}

			if req.PointsOverride != nil {
				if *req.PointsOverride < 0 {
					return domain.ErrInvalidArgument
				}
				invoice.PointsEarned = *req.PointsOverride
			}
			invoice.Status = domain.StatusApproved
			invoice.ApprovedAt = &now
			if actor.UserID != 0 {
				approvedBy := actor.UserID
				invoice.ApprovedBy = &approvedBy
			}
			invoice.RejectedAt = nil
			invoice.RejectedBy = nil
			invoice.RejectedReason = nil

			invoiceID := invoice.ID
			if _, err := s.points.Record(ctx, tx, pointsdomain.RecordRequest{
				StoreID:      invoice.StoreID,
				Type:         pointsdomain.TypePurchase,
				PointsChange: invoice.PointsEarned,
				InvoiceID:    &invoiceID,
			}); err != nil {
				return err
			}
		} else {
			invoice.Status = domain.StatusRejected
			invoice.RejectedAt = &now
			if actor.UserID != 0 {
				rejectedBy := actor.UserID
				invoice.RejectedBy = &rejectedBy
			}
			invoice.RejectedReason = &reason
		}

		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}
		decided = *invoice
		return nil
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	if decided.Status == domain.StatusApproved {
		// Opportunistic auto-claim after commit. Failures are logged and
		// swallowed so the approval itself never degrades.
		if err := s.reward.AutoClaimEligible(ctx, decided.StoreID); err != nil {
			s.log.Warn("post-approval reward check failed",
				zap.String("invoice_id", decided.ID.String()),
				zap.String("store_id", decided.StoreID.String()),
				zap.Error(err),
			)
		}
	}

	s.auditDecision(ctx, decided, reason)
	return decided, nil
}

func (s *Service) auditDecision(ctx context.Context, invoice domain.Invoice, reason string) {
	action := "invoice.approved"
	metadata := map[string]any{
		"invoice_number": invoice.InvoiceNumber,
		"points_earned":  invoice.PointsEarned,
	}
	if invoice.Status == domain.StatusRejected {
		action = "invoice.rejected"
		metadata["reason"] = reason
	}
	targetID := invoice.ID.String()
	if err := s.audit.AuditLog(ctx, invoice.CountryID, "", nil, action, "invoice", &targetID, metadata); err != nil {
		s.log.Warn("audit log write failed", zap.Error(err))
	}
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	if id == 0 {
		return domain.ErrInvalidArgument
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return err
		}
		// Cascade: drop the invoice's ledger entries, each reverting the
		// balance it applied.
		return s.points.DeleteByInvoice(ctx, tx, id)
	})
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if invoice == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}
	return *invoice, nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Invoice, error) {
	return s.repo.List(ctx, s.db, filter)
}
