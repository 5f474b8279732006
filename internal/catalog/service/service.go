package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cielo/internal/cache"
	"github.com/smallbiznis/cielo/internal/catalog/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Fallback points for the demo SKUs when neither catalog tier has a match.
// Matched by substring so regional SKU variants (e.g. AGUA-500-PE) still
// resolve.
var fallbackPoints = []struct {
	Fragment string
	Points   int64
}{
	{"AGUA-500", 20},
	{"AGUA-1000", 35},
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Resolver cache.PointsResolverCache `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	resolver cache.PointsResolverCache
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("catalog.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		resolver: p.Resolver,
	}
}

func (s *Service) ResolvePointsPerUnit(ctx context.Context, countryID, sku string) (int64, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return 0, domain.ErrInvalidSKU
	}

	if s.resolver != nil {
		if points, ok := s.resolver.Get(countryID, sku); ok {
			return points, nil
		}
	}

	points, err := s.resolvePointsPerUnit(ctx, countryID, sku)
	if err != nil {
		return 0, err
	}
	if s.resolver != nil {
		s.resolver.Set(countryID, sku, points)
	}
	return points, nil
}

func (s *Service) resolvePointsPerUnit(ctx context.Context, countryID, sku string) (int64, error) {
	if countryID != "" {
		override, err := s.repo.FindCountryProduct(ctx, s.db, countryID, sku)
		if err != nil {
			return 0, err
		}
		if override != nil {
			return override.PointsPerUnit, nil
		}
	}

	global, err := s.repo.FindGlobalProductBySKU(ctx, s.db, sku)
	if err != nil {
		return 0, err
	}
	if global != nil {
		return global.PointsPerUnit, nil
	}

	for _, fb := range fallbackPoints {
		if strings.Contains(sku, fb.Fragment) {
			return fb.Points, nil
		}
	}
	return 0, nil
}

func (s *Service) UpsertGlobalProduct(ctx context.Context, req domain.UpsertGlobalProductRequest) (domain.GlobalProduct, error) {
	req.SKU = strings.TrimSpace(req.SKU)
	req.Name = strings.TrimSpace(req.Name)
	if req.SKU == "" {
		return domain.GlobalProduct{}, domain.ErrInvalidSKU
	}
	if req.Name == "" {
		return domain.GlobalProduct{}, domain.ErrInvalidName
	}
	if req.PointsPerUnit < 0 {
		return domain.GlobalProduct{}, domain.ErrInvalidPoints
	}

	product := domain.GlobalProduct{
		ID:            s.genID.Generate(),
		SKU:           req.SKU,
		Name:          req.Name,
		PointsPerUnit: req.PointsPerUnit,
		Active:        true,
	}
	if err := s.repo.UpsertGlobalProduct(ctx, s.db, &product); err != nil {
		return domain.GlobalProduct{}, err
	}
	if s.resolver != nil {
		// A global row is the fallback for every country, so drop everything.
		s.resolver.Purge()
	}
	return product, nil
}

func (s *Service) UpsertCountryProduct(ctx context.Context, req domain.UpsertCountryProductRequest) (domain.CountryProduct, error) {
	req.CountryID = strings.TrimSpace(req.CountryID)
	req.SKU = strings.TrimSpace(req.SKU)
	if req.CountryID == "" {
		return domain.CountryProduct{}, domain.ErrInvalidCountry
	}
	if req.SKU == "" {
		return domain.CountryProduct{}, domain.ErrInvalidSKU
	}
	if req.PointsPerUnit < 0 {
		return domain.CountryProduct{}, domain.ErrInvalidPoints
	}

	product := domain.CountryProduct{
		ID:            s.genID.Generate(),
		CountryID:     req.CountryID,
		SKU:           req.SKU,
		LocalSKU:      strings.TrimSpace(req.LocalSKU),
		LocalName:     strings.TrimSpace(req.LocalName),
		PointsPerUnit: req.PointsPerUnit,
		Active:        true,
	}
	if err := s.repo.UpsertCountryProduct(ctx, s.db, &product); err != nil {
		return domain.CountryProduct{}, err
	}
	if s.resolver != nil {
		s.resolver.Invalidate(product.CountryID, product.SKU)
		if product.LocalSKU != "" {
			s.resolver.Invalidate(product.CountryID, product.LocalSKU)
		}
	}
	return product, nil
}

func (s *Service) ListGlobalProducts(ctx context.Context) ([]domain.GlobalProduct, error) {
	return s.repo.ListGlobalProducts(ctx, s.db)
}

func (s *Service) ListCountryProducts(ctx context.Context, countryID string) ([]domain.CountryProduct, error) {
	if strings.TrimSpace(countryID) == "" {
		return nil, domain.ErrInvalidCountry
	}
	return s.repo.ListCountryProducts(ctx, s.db, countryID)
}

func (s *Service) CreateGlobalReward(ctx context.Context, req domain.CreateGlobalRewardRequest) (domain.GlobalReward, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.GlobalReward{}, domain.ErrInvalidName
	}
	if req.PointsRequired <= 0 {
		return domain.GlobalReward{}, domain.ErrInvalidPoints
	}

	reward := domain.GlobalReward{
		ID:             s.genID.Generate(),
		Name:           req.Name,
		Description:    strings.TrimSpace(req.Description),
		PointsRequired: req.PointsRequired,
		Active:         true,
	}
	if err := s.repo.CreateGlobalReward(ctx, s.db, &reward); err != nil {
		return domain.GlobalReward{}, err
	}
	return reward, nil
}

func (s *Service) CreateCountryReward(ctx context.Context, req domain.CreateCountryRewardRequest) (domain.CountryReward, error) {
	req.CountryID = strings.TrimSpace(req.CountryID)
	req.Name = strings.TrimSpace(req.Name)
	if req.CountryID == "" {
		return domain.CountryReward{}, domain.ErrInvalidCountry
	}
	if req.Name == "" {
		return domain.CountryReward{}, domain.ErrInvalidName
	}
	if req.PointsRequired <= 0 {
		return domain.CountryReward{}, domain.ErrInvalidPoints
	}

	reward := domain.CountryReward{
		ID:             s.genID.Generate(),
		CountryID:      req.CountryID,
		GlobalRewardID: req.GlobalRewardID,
		Name:           req.Name,
		Description:    strings.TrimSpace(req.Description),
		PointsRequired: req.PointsRequired,
		AutoClaim:      req.AutoClaim,
		Active:         true,
	}
	if err := s.repo.CreateCountryReward(ctx, s.db, &reward); err != nil {
		return domain.CountryReward{}, err
	}
	return reward, nil
}

func (s *Service) GetCountryReward(ctx context.Context, id snowflake.ID) (domain.CountryReward, error) {
	reward, err := s.repo.FindCountryReward(ctx, s.db, id)
	if err != nil {
		return domain.CountryReward{}, err
	}
	if reward == nil {
		return domain.CountryReward{}, domain.ErrRewardNotFound
	}
	return *reward, nil
}

func (s *Service) ListCountryRewards(ctx context.Context, countryID string) ([]domain.CountryReward, error) {
	if strings.TrimSpace(countryID) == "" {
		return nil, domain.ErrInvalidCountry
	}
	return s.repo.ListCountryRewards(ctx, s.db, countryID)
}

func (s *Service) ListAutoClaimRewards(ctx context.Context, countryID string) ([]domain.CountryReward, error) {
	if strings.TrimSpace(countryID) == "" {
		return nil, domain.ErrInvalidCountry
	}
	return s.repo.ListAutoClaimRewards(ctx, s.db, countryID)
}
