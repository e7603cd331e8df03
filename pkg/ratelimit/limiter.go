// Package ratelimit enforces per-model request and token ceilings over a
// sliding time window.
package ratelimit

import (
	"time"

	"github.com/Dieugene/agentic-doc-processing/pkg/config"
)

// Decision is the outcome of an admission check. When Allowed is false, Wait
// is how long until the window frees enough capacity, and Reason says which
// ceiling was hit.
type Decision struct {
	Allowed bool
	Wait    time.Duration
	Reason  string
}

// Limiter wraps one usage window per configured model. Different models never
// contend: each window carries its own lock.
type Limiter struct {
	limits  map[string]config.ModelConfig
	windows map[string]*Window
}

// New creates a Limiter with one window per configured model.
func New(cfgs []config.ModelConfig) *Limiter {
	l := &Limiter{
		limits:  make(map[string]config.ModelConfig, len(cfgs)),
		windows: make(map[string]*Window, len(cfgs)),
	}
	for _, mc := range cfgs {
		l.limits[mc.ID] = mc
		l.windows[mc.ID] = NewWindow(mc.Window)
	}
	return l
}

// Check decides whether a request of estimatedCost may be sent to model now.
// Unknown models and models without configured ceilings are always admitted.
func (l *Limiter) Check(model string, estimatedCost int) Decision {
	w, ok := l.windows[model]
	if !ok {
		return Decision{Allowed: true}
	}
	mc := l.limits[model]
	if mc.MaxRequestsPerWindow == 0 && mc.MaxTokensPerWindow == 0 {
		return Decision{Allowed: true}
	}
	return w.Admit(estimatedCost, mc.MaxRequestsPerWindow, mc.MaxTokensPerWindow)
}

// Record commits a sample to the model's window at the current time.
func (l *Limiter) Record(model string, cost int) {
	if w, ok := l.windows[model]; ok {
		w.Add(cost)
	}
}

// Usage returns the current request count and token cost in model's window.
func (l *Limiter) Usage(model string) (requests, cost int) {
	w, ok := l.windows[model]
	if !ok {
		return 0, 0
	}
	return w.Usage()
}
