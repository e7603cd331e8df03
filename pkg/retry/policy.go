// Package retry classifies remote failures and computes backoff delays.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"time"

	"github.com/Dieugene/agentic-doc-processing/pkg/config"
	"github.com/Dieugene/agentic-doc-processing/pkg/provider"
)

// Policy decides whether a failed attempt should be repeated and how long to
// wait before it is. It is stateless: attempt counters live with the caller.
type Policy struct {
	MaxRetries        int
	InitialDelay      time.Duration
	BackoffMultiplier float64
	Jitter            time.Duration
}

// NewPolicy builds a Policy from configuration.
func NewPolicy(cfg config.RetryConfig) *Policy {
	return &Policy{
		MaxRetries:        cfg.MaxRetries,
		InitialDelay:      cfg.InitialDelay,
		BackoffMultiplier: cfg.BackoffMultiplier,
		Jitter:            cfg.Jitter,
	}
}

// Delay returns the backoff for a 0-indexed attempt: exponential growth plus
// uniform jitter in [-Jitter, +Jitter], clamped to non-negative. The jitter
// keeps concurrent batches from retrying in lockstep.
func (p *Policy) Delay(attempt int) time.Duration {
	base := float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt))
	jitter := 0.0
	if p.Jitter > 0 {
		jitter = (rand.Float64()*2 - 1) * float64(p.Jitter)
	}
	d := time.Duration(base + jitter)
	if d < 0 {
		d = 0
	}
	return d
}

// ShouldRetry reports whether err warrants another attempt. Rate-limit
// responses, server errors, and transport timeouts are transient; everything
// else, including errors we cannot classify, is terminal.
func (p *Policy) ShouldRetry(err error, attempt int) bool {
	if attempt >= p.MaxRetries {
		return false
	}
	return Transient(err)
}

// Transient classifies an error independently of attempt bookkeeping.
func Transient(err error) bool {
	if err == nil {
		return false
	}

	// Cancellation is not a remote failure.
	if errors.Is(err, context.Canceled) {
		return false
	}

	if status := provider.StatusOf(err); status != 0 {
		if status == 429 {
			return true
		}
		if status >= 500 && status < 600 {
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	return false
}
