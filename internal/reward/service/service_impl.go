package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/cielo/internal/catalog/domain"
	pointsdomain "github.com/smallbiznis/cielo/internal/points/domain"
	"github.com/smallbiznis/cielo/internal/reward/domain"
	storedomain "github.com/smallbiznis/cielo/internal/store/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	StoreRepo storedomain.Repository
	Catalog   catalogdomain.Service
	Points    pointsdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	storeRepo storedomain.Repository
	catalog   catalogdomain.Service
	points    pointsdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("reward.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		storeRepo: p.StoreRepo,
		catalog:   p.Catalog,
		points:    p.Points,
	}
}

func (s *Service) Claim(ctx context.Context, storeID, rewardID snowflake.ID) (domain.ClaimResponse, error) {
	if storeID == 0 || rewardID == 0 {
		return domain.ClaimResponse{}, domain.ErrInvalidArgument
	}

	reward, err := s.catalog.GetCountryReward(ctx, rewardID)
	if err != nil {
		return domain.ClaimResponse{}, err
	}

	var resp domain.ClaimResponse
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// The balance check and the deduction must see the same row state,
		// so both happen inside this transaction.
		store, err := s.storeRepo.FindByID(ctx, tx, storeID)
		if err != nil {
			return err
		}
		if store == nil {
			return storedomain.ErrNotFound
		}
		if store.PointsTotal < reward.PointsRequired {
			return domain.ErrInsufficientPoints
		}

		claim := domain.RewardClaim{
			ID:             s.genID.Generate(),
			StoreID:        storeID,
			RewardID:       rewardID,
			DistributorID:  store.DistributorID,
			CountryID:      store.CountryID,
			PointsDeducted: reward.PointsRequired,
			Status:         domain.ClaimPending,
			ClaimedAt:      time.Now().UTC(),
		}
		if err := s.repo.InsertClaim(ctx, tx, &claim); err != nil {
			return err
		}

		claimID := claim.ID
		if _, err := s.points.Record(ctx, tx, pointsdomain.RecordRequest{
			StoreID:       storeID,
			Type:          pointsdomain.TypeRewardRedemption,
			PointsChange:  -reward.PointsRequired,
			RewardClaimID: &claimID,
		}); err != nil {
			return err
		}

		resp = domain.ClaimResponse{
			Claim:           claim,
			PointsRemaining: store.PointsTotal - reward.PointsRequired,
		}
		return nil
	})
	if err != nil {
		return domain.ClaimResponse{}, err
	}
	return resp, nil
}

func (s *Service) AutoClaimEligible(ctx context.Context, storeID snowflake.ID) error {
	store, err := s.storeRepo.FindByID(ctx, s.db, storeID)
	if err != nil {
		return err
	}
	if store == nil {
		return storedomain.ErrNotFound
	}

	rewards, err := s.catalog.ListAutoClaimRewards(ctx, store.CountryID)
	if err != nil {
		return err
	}

	for _, reward := range rewards {
		if store.PointsTotal < reward.PointsRequired {
			continue
		}
		// One auto-claim per store and reward; re-approvals of later
		// invoices must not stack duplicate claims.
		count, err := s.repo.CountClaims(ctx, s.db, storeID, reward.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		rewardID := reward.ID
		err = s.db.Transaction(func(tx *gorm.DB) error {
			fresh, err := s.storeRepo.FindByID(ctx, tx, storeID)
			if err != nil {
				return err
			}
			if fresh == nil || fresh.PointsTotal < reward.PointsRequired {
				return domain.ErrInsufficientPoints
			}

			claim := domain.RewardClaim{
				ID:             s.genID.Generate(),
				StoreID:        storeID,
				RewardID:       rewardID,
				DistributorID:  fresh.DistributorID,
				CountryID:      fresh.CountryID,
				PointsDeducted: reward.PointsRequired,
				Status:         domain.ClaimInAssignment,
				ClaimedAt:      time.Now().UTC(),
			}
			if err := s.repo.InsertClaim(ctx, tx, &claim); err != nil {
				return err
			}

			// The claim starts at in_assignment, so it must hold a
			// reservation like any scheduler-assigned claim; otherwise its
			// delivery would consume a unit reserved for someone else.
			affected, err := s.repo.ReserveStock(ctx, tx, fresh.DistributorID, rewardID, fresh.CountryID)
			if err != nil {
				return err
			}
			if affected == 0 {
				// Same advisory-inventory rule as delivery: a missing stock
				// row does not block the claim.
				s.log.Warn("no stock reserved for auto-claim",
					zap.String("store_id", storeID.String()),
					zap.String("reward_id", rewardID.String()),
				)
			}

			claimID := claim.ID
			_, err = s.points.Record(ctx, tx, pointsdomain.RecordRequest{
				StoreID:       storeID,
				Type:          pointsdomain.TypeRewardRedemption,
				PointsChange:  -reward.PointsRequired,
				RewardClaimID: &claimID,
			})
			return err
		})
		if err != nil {
			s.log.Warn("auto-claim failed",
				zap.String("store_id", storeID.String()),
				zap.String("reward_id", rewardID.String()),
				zap.Error(err),
			)
			continue
		}
		store.PointsTotal -= reward.PointsRequired
	}
	return nil
}

func (s *Service) UpdateStatus(ctx context.Context, claimID snowflake.ID, next domain.ClaimStatus) (domain.RewardClaim, error) {
	if claimID == 0 {
		return domain.RewardClaim{}, domain.ErrInvalidArgument
	}

	var updated domain.RewardClaim
	err := s.db.Transaction(func(tx *gorm.DB) error {
		claim, err := s.repo.FindClaim(ctx, tx, claimID)
		if err != nil {
			return err
		}
		if claim == nil {
			return domain.ErrClaimNotFound
		}
		if !claim.Status.CanTransitionTo(next) {
			return domain.ErrInvalidTransition
		}

		now := time.Now().UTC()
		claim.Status = next
		claim.UpdatedAt = now
		if next == domain.ClaimDelivered {
			claim.DeliveredAt = &now
			affected, err := s.repo.ConsumeStock(ctx, tx, claim.DistributorID, claim.RewardID, claim.CountryID)
			if err != nil {
				return err
			}
			if affected == 0 {
				// No stock row (or an inconsistent one) for this claim.
				// Delivery still completes; inventory is advisory here.
				s.log.Warn("no stock row consumed on delivery",
					zap.String("claim_id", claim.ID.String()),
					zap.String("distributor_id", claim.DistributorID),
					zap.String("reward_id", claim.RewardID.String()),
				)
			}
		}

		if err := s.repo.UpdateClaim(ctx, tx, claim); err != nil {
			return err
		}
		updated = *claim
		return nil
	})
	if err != nil {
		return domain.RewardClaim{}, err
	}
	return updated, nil
}

func (s *Service) Rate(ctx context.Context, claimID snowflake.ID, rating int16) error {
	if rating < 1 || rating > 5 {
		return domain.ErrInvalidRating
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		claim, err := s.repo.FindClaim(ctx, tx, claimID)
		if err != nil {
			return err
		}
		if claim == nil {
			return domain.ErrClaimNotFound
		}
		if claim.Status != domain.ClaimDelivered {
			return domain.ErrNotDelivered
		}
		claim.Rating = &rating
		claim.UpdatedAt = time.Now().UTC()
		return s.repo.UpdateClaim(ctx, tx, claim)
	})
}

func (s *Service) GetClaim(ctx context.Context, id snowflake.ID) (domain.RewardClaim, error) {
	claim, err := s.repo.FindClaim(ctx, s.db, id)
	if err != nil {
		return domain.RewardClaim{}, err
	}
	if claim == nil {
		return domain.RewardClaim{}, domain.ErrClaimNotFound
	}
	return *claim, nil
}

func (s *Service) ListClaims(ctx context.Context, filter domain.ClaimFilter) ([]domain.RewardClaim, error) {
	return s.repo.ListClaims(ctx, s.db, filter)
}

func (s *Service) AssignPending(ctx context.Context) (int, error) {
	pending, err := s.repo.ListClaims(ctx, s.db, domain.ClaimFilter{
		Status: domain.ClaimPending,
		Limit:  200,
	})
	if err != nil {
		return 0, err
	}

	assigned := 0
	for _, claim := range pending {
		if claim.DistributorID == "" {
			continue
		}
		// Advisory pre-check; the conditional update inside the transaction
		// is the authoritative availability test.
		stock, err := s.repo.FindStock(ctx, s.db, claim.DistributorID, claim.RewardID, claim.CountryID)
		if err != nil {
			return assigned, err
		}
		if stock == nil || stock.Available() <= 0 {
			continue
		}

		claim := claim
		err = s.db.Transaction(func(tx *gorm.DB) error {
			fresh, err := s.repo.FindClaim(ctx, tx, claim.ID)
			if err != nil {
				return err
			}
			if fresh == nil || fresh.Status != domain.ClaimPending {
				return nil
			}
			affected, err := s.repo.ReserveStock(ctx, tx, fresh.DistributorID, fresh.RewardID, fresh.CountryID)
			if err != nil {
				return err
			}
			if affected == 0 {
				// Lost the stock between scan and re-check; next run retries.
				return nil
			}
			fresh.Status = domain.ClaimInAssignment
			fresh.UpdatedAt = time.Now().UTC()
			if err := s.repo.UpdateClaim(ctx, tx, fresh); err != nil {
				return err
			}
			assigned++
			return nil
		})
		if err != nil {
			s.log.Warn("claim assignment failed",
				zap.String("claim_id", claim.ID.String()),
				zap.Error(err),
			)
		}
	}
	return assigned, nil
}

func (s *Service) ExpirePending(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	cutoff := time.Now().UTC().Add(-maxAge)

	stale, err := s.repo.ListClaims(ctx, s.db, domain.ClaimFilter{
		Status:        domain.ClaimPending,
		ClaimedBefore: &cutoff,
		Limit:         200,
	})
	if err != nil {
		return 0, err
	}

	// One transaction per claim so the expiry and its point refund commit
	// together; a failing claim does not hold up the rest of the batch.
	expired := 0
	for _, claim := range stale {
		claim := claim
		err := s.db.Transaction(func(tx *gorm.DB) error {
			fresh, err := s.repo.FindClaim(ctx, tx, claim.ID)
			if err != nil {
				return err
			}
			if fresh == nil || fresh.Status != domain.ClaimPending || !fresh.ClaimedAt.Before(cutoff) {
				return nil
			}
			fresh.Status = domain.ClaimExpired
			fresh.UpdatedAt = time.Now().UTC()
			if err := s.repo.UpdateClaim(ctx, tx, fresh); err != nil {
				return err
			}
			claimID := fresh.ID
			if _, err := s.points.Record(ctx, tx, pointsdomain.RecordRequest{
				StoreID:       fresh.StoreID,
				Type:          pointsdomain.TypeRewardRedemption,
				PointsChange:  fresh.PointsDeducted,
				RewardClaimID: &claimID,
			}); err != nil {
				return err
			}
			expired++
			return nil
		})
		if err != nil {
			s.log.Warn("claim expiry failed",
				zap.String("claim_id", claim.ID.String()),
				zap.Error(err),
			)
		}
	}
	return expired, nil
}

func (s *Service) UpsertStock(ctx context.Context, req domain.UpsertStockRequest) (domain.DistributorRewardStock, error) {
	if req.DistributorID == "" || req.RewardID == 0 || req.CountryID == "" {
		return domain.DistributorRewardStock{}, domain.ErrInvalidArgument
	}
	if req.Quantity < 0 {
		return domain.DistributorRewardStock{}, domain.ErrInvalidQuantity
	}

	var out domain.DistributorRewardStock
	err := s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindStock(ctx, tx, req.DistributorID, req.RewardID, req.CountryID)
		if err != nil {
			return err
		}
		if existing != nil && req.Quantity < existing.Reserved {
			// Shrinking below the reserved count would break the invariant.
			return domain.ErrInvalidQuantity
		}

		stock := domain.DistributorRewardStock{
			ID:            s.genID.Generate(),
			DistributorID: req.DistributorID,
			RewardID:      req.RewardID,
			CountryID:     req.CountryID,
			Quantity:      req.Quantity,
			UpdatedAt:     time.Now().UTC(),
		}
		if existing != nil {
			stock.ID = existing.ID
			stock.Reserved = existing.Reserved
		}
		if err := s.repo.UpsertStock(ctx, tx, &stock); err != nil {
			return err
		}
		out = stock
		return nil
	})
	if err != nil {
		return domain.DistributorRewardStock{}, err
	}
	return out, nil
}

func (s *Service) ListStock(ctx context.Context, distributorID string) ([]domain.DistributorRewardStock, error) {
	return s.repo.ListStock(ctx, s.db, distributorID)
}
