package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// sample is one committed request: when it was sent and what it cost.
type sample struct {
	at   time.Time
	cost int
}

// Window tracks (timestamp, cost) samples over a trailing interval. Samples
// older than the interval are pruned lazily on every read and write.
type Window struct {
	mu      sync.Mutex
	span    time.Duration
	samples []sample

	now func() time.Time // overridable in tests
}

// NewWindow creates a Window covering the given trailing span.
func NewWindow(span time.Duration) *Window {
	return &Window{span: span, now: time.Now}
}

// Add commits a sample at the current time.
func (w *Window) Add(cost int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	w.prune(now)
	w.samples = append(w.samples, sample{at: now, cost: cost})
}

// Usage returns the current request count and summed cost inside the window.
func (w *Window) Usage() (requests, cost int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.now())
	for _, s := range w.samples {
		cost += s.cost
	}
	return len(w.samples), cost
}

// Admit decides whether a request of estimatedCost fits under the given
// ceilings. A ceiling of zero is unlimited. When denied, Wait is the time
// until enough old samples age out for the request to fit.
func (w *Window) Admit(estimatedCost, maxRequests, maxCost int) Decision {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.prune(now)

	if maxRequests > 0 && len(w.samples) >= maxRequests {
		oldest := w.samples[0]
		return Decision{
			Wait:   w.waitUntilExit(oldest.at, now),
			Reason: fmt.Sprintf("request limit reached: %d/%d in window", len(w.samples), maxRequests),
		}
	}

	if maxCost > 0 {
		total := 0
		for _, s := range w.samples {
			total += s.cost
		}
		if total+estimatedCost >= maxCost {
			// Walk oldest-first, draining cost until the new request fits.
			remaining := total
			for _, s := range w.samples {
				remaining -= s.cost
				if remaining+estimatedCost < maxCost {
					return Decision{
						Wait:   w.waitUntilExit(s.at, now),
						Reason: fmt.Sprintf("token limit reached: %d/%d in window", total, maxCost),
					}
				}
			}
			// Even an empty window cannot fit the request; wait a full span.
			return Decision{
				Wait:   w.span,
				Reason: fmt.Sprintf("request cost %d exceeds window capacity %d", estimatedCost, maxCost),
			}
		}
	}

	return Decision{Allowed: true}
}

// prune drops samples that have aged out of the window. A sample taken at ts
// exits at ts+span exactly, matching the wait reported by waitUntilExit.
// Caller holds the lock.
func (w *Window) prune(now time.Time) {
	cutoff := now.Add(-w.span)
	i := 0
	for i < len(w.samples) && !w.samples[i].at.After(cutoff) {
		i++
	}
	if i > 0 {
		w.samples = append(w.samples[:0], w.samples[i:]...)
	}
}

// waitUntilExit returns how long until a sample taken at ts leaves the window.
func (w *Window) waitUntilExit(ts, now time.Time) time.Duration {
	wait := ts.Add(w.span).Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait
}
