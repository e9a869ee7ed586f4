// Package tokenizer simulates the card tokenization service.
//
// CreateToken waits for a fixed delay, respects context cancellation and
// then either returns a token or a classified error.
package tokenizer

import (
	"context"
	"fmt"
	"time"

	"github.com/iliamunaev/checkout-pipeline/internal/apperr"
	"github.com/iliamunaev/checkout-pipeline/internal/checkout"
	"github.com/iliamunaev/checkout-pipeline/internal/service/shared"
	"github.com/iliamunaev/checkout-pipeline/internal/service/tracker"
)

const (
	// DefaultDelay is the simulated tokenization latency.
	DefaultDelay = time.Second
	// SuccessToken is returned for every accepted credential.
	SuccessToken checkout.Token = "success"
)

var (
	// ErrCardRejected is returned when the provider is configured to fail.
	ErrCardRejected = apperr.New("card_rejected", "card rejected")
	// ErrEmptyCredential is returned for a credential without payload.
	ErrEmptyCredential = apperr.New("empty_credential", "empty credential")
)

// Config controls the simulation.
type Config struct {
	Delay time.Duration
	Fail  bool
}

// Provider is a simulated checkout.TokenProvider.
type Provider struct {
	delay time.Duration
	fail  bool
	tr    *tracker.Tracker
}

var _ checkout.TokenProvider = (*Provider)(nil)

// New returns a Provider. A negative delay is treated as zero; tr may be nil.
func New(cfg Config, tr *tracker.Tracker) *Provider {
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	return &Provider{delay: cfg.Delay, fail: cfg.Fail, tr: tr}
}

// CreateToken exchanges cred for a token after the configured delay.
func (p *Provider) CreateToken(ctx context.Context, cred checkout.Credential) (checkout.Token, error) {
	defer p.tr.Begin()()

	// Block until the delay elapses or the context is done
	if err := shared.SleepOrDone(ctx, p.delay); err != nil {
		return "", fmt.Errorf("tokenizer: %w", err)
	}

	if len(cred.Data) == 0 {
		return "", fmt.Errorf("tokenizer: %w", ErrEmptyCredential)
	}
	if p.fail {
		return "", fmt.Errorf("tokenizer: %w", ErrCardRejected)
	}
	return SuccessToken, nil
}
