package service

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cielo/internal/ocr/domain"
	"github.com/smallbiznis/cielo/internal/ocr/parser"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// mockDelay simulates the latency of a real vision backend so the demo
// feels honest.
const mockDelay = 400 * time.Millisecond

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ocr.service"),
		genID: p.GenID,
	}
}

func (s *Service) Recognize(ctx context.Context, rawText, imageHash string) (domain.ParseResult, error) {
	result, err := parser.Parse(rawText)
	if err != nil {
		// No usable detection. The demo stays functional on a fabricated
		// invoice; Mocked tells the caller what happened.
		s.log.Info("ocr parse failed, serving mock result",
			zap.String("image_hash", imageHash),
			zap.Error(err),
		)
		return s.mockResult(ctx, imageHash)
	}

	s.persistScan(ctx, rawText, imageHash, result)
	return result, nil
}

// persistScan keeps a debug trail of successful parses. Best effort; a
// failed insert never fails the recognition.
func (s *Service) persistScan(ctx context.Context, rawText, imageHash string, result domain.ParseResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		s.log.Warn("ocr scan marshal failed", zap.Error(err))
		return
	}
	scan := domain.Scan{
		ID:        s.genID.Generate(),
		ImageHash: imageHash,
		RawText:   rawText,
		Result:    datatypes.JSON(payload),
	}
	if err := s.db.WithContext(ctx).Create(&scan).Error; err != nil {
		s.log.Warn("ocr scan persist failed", zap.Error(err))
	}
}

func (s *Service) mockResult(ctx context.Context, imageHash string) (domain.ParseResult, error) {
	select {
	case <-time.After(mockDelay):
	case <-ctx.Done():
		return domain.ParseResult{}, ctx.Err()
	}

	// Seeded from the image hash so the same upload mocks the same invoice.
	h := fnv.New64a()
	h.Write([]byte(imageHash))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	result := domain.ParseResult{
		InvoiceNumber: fmt.Sprintf("F001-%06d", rng.Intn(1000000)),
		Date:          time.Now().UTC().Format("2006-01-02"),
		Items: []domain.Item{
			{SKU: "AGUA-500", Name: "Agua Cielo 500ml", Quantity: int64(1 + rng.Intn(10)), Price: 1.5},
			{SKU: "AGUA-1000", Name: "Agua Cielo 1L", Quantity: int64(1 + rng.Intn(10)), Price: 2.5},
			{SKU: "AGUA-2500", Name: "Agua Cielo 2.5L", Quantity: int64(1 + rng.Intn(5)), Price: 5},
		},
		Mocked: true,
	}
	return result, nil
}
