package domain

import (
	"context"
	"errors"
)

type Service interface {
	// Recognize parses raw OCR text into a structured invoice. It never
	// fails: unusable input yields a seeded mock result with Mocked set.
	Recognize(ctx context.Context, rawText, imageHash string) (ParseResult, error)
}

var ErrNoDetection = errors.New("no_text_detected")
