package retry

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/Dieugene/agentic-doc-processing/pkg/config"
	"github.com/Dieugene/agentic-doc-processing/pkg/provider"
)

func testPolicy() *Policy {
	return NewPolicy(config.RetryConfig{
		MaxRetries:        3,
		InitialDelay:      100 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Jitter:            20 * time.Millisecond,
	})
}

func TestDelayGrowsWithAttempt(t *testing.T) {
	p := testPolicy()

	// Jitter is ±20ms while the base doubles from 100ms, so averages over a
	// few samples must be strictly increasing.
	mean := func(attempt int) time.Duration {
		var total time.Duration
		const n = 50
		for i := 0; i < n; i++ {
			total += p.Delay(attempt)
		}
		return total / n
	}

	prev := mean(0)
	for attempt := 1; attempt < 4; attempt++ {
		cur := mean(attempt)
		if cur <= prev {
			t.Errorf("mean delay at attempt %d (%v) not above attempt %d (%v)", attempt, cur, attempt-1, prev)
		}
		prev = cur
	}
}

func TestDelayNeverNegative(t *testing.T) {
	p := &Policy{InitialDelay: time.Millisecond, BackoffMultiplier: 1.0, Jitter: time.Second}
	for i := 0; i < 100; i++ {
		if d := p.Delay(0); d < 0 {
			t.Fatalf("negative delay %v", d)
		}
	}
}

func TestShouldRetryClassification(t *testing.T) {
	p := testPolicy()

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit", &provider.APIError{StatusCode: 429}, true},
		{"server error", &provider.APIError{StatusCode: 503}, true},
		{"bad request", &provider.APIError{StatusCode: 400}, false},
		{"unauthorized", &provider.APIError{StatusCode: 401}, false},
		{"timeout", context.DeadlineExceeded, true},
		{"net op error", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"cancelled", context.Canceled, false},
		{"unclassified", errors.New("something odd"), false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.ShouldRetry(tc.err, 0); got != tc.want {
				t.Errorf("ShouldRetry(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestShouldRetryExhaustsAttempts(t *testing.T) {
	p := testPolicy()
	err := &provider.APIError{StatusCode: 503}

	if !p.ShouldRetry(err, 2) {
		t.Error("attempt 2 of 3 should retry")
	}
	if p.ShouldRetry(err, 3) {
		t.Error("attempt 3 of 3 should not retry")
	}
	if p.ShouldRetry(err, 10) {
		t.Error("attempts past the limit should not retry")
	}
}

func TestTransientNetTimeout(t *testing.T) {
	err := &net.OpError{Op: "read", Err: &timeoutErr{}}
	if !Transient(err) {
		t.Error("network timeout should be transient")
	}
}

type timeoutErr struct{}

func (*timeoutErr) Error() string   { return "i/o timeout" }
func (*timeoutErr) Timeout() bool   { return true }
func (*timeoutErr) Temporary() bool { return true }
