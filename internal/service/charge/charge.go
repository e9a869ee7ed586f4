// Package charge simulates the backend call that charges a token.
package charge

import (
	"context"
	"time"

	"github.com/iliamunaev/checkout-pipeline/internal/checkout"
	"github.com/iliamunaev/checkout-pipeline/internal/service/shared"
	"github.com/iliamunaev/checkout-pipeline/internal/service/tracker"
)

// DefaultDelay is the simulated charge latency.
const DefaultDelay = time.Second

// Config controls the simulation.
type Config struct {
	Delay   time.Duration
	Decline bool
}

// Service is a simulated checkout.ChargeService.
type Service struct {
	delay   time.Duration
	decline bool
	tr      *tracker.Tracker
}

var _ checkout.ChargeService = (*Service)(nil)

// New returns a Service. A negative delay is treated as zero; tr may be nil.
func New(cfg Config, tr *tracker.Tracker) *Service {
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	return &Service{delay: cfg.Delay, decline: cfg.Decline, tr: tr}
}

// ProcessToken charges token for product after the configured delay.
// It reports false when declined, when the token is empty, when the
// price is not positive, or when ctx ends first.
func (s *Service) ProcessToken(ctx context.Context, token checkout.Token, product checkout.Product) bool {
	defer s.tr.Begin()()

	if err := shared.SleepOrDone(ctx, s.delay); err != nil {
		return false
	}

	if s.decline || token == "" {
		return false
	}
	return product.Price > 0
}
