// Package router delivers each request's result to its originating caller
// exactly once.
package router

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/Dieugene/agentic-doc-processing/pkg/models"
)

// Pending pairs a request with its one-shot result slot. It is created at
// submission, travels through the queue and executor, and is destroyed on
// resolution. The slot accepts exactly one write; later writes are dropped.
type Pending struct {
	Req *models.Request

	done     chan struct{}
	resp     *models.Response
	err      error
	resolved atomic.Bool
}

// NewPending creates an unresolved slot for a request.
func NewPending(req *models.Request) *Pending {
	return &Pending{Req: req, done: make(chan struct{})}
}

// resolve writes the result if the slot is still open. Returns false when the
// slot was already resolved.
func (p *Pending) resolve(resp *models.Response, err error) bool {
	if !p.resolved.CompareAndSwap(false, true) {
		return false
	}
	p.resp = resp
	p.err = err
	close(p.done)
	return true
}

// Resolved reports whether a result has been delivered.
func (p *Pending) Resolved() bool {
	return p.resolved.Load()
}

// Await suspends until the slot is resolved or ctx is done. A ctx expiry
// detaches the caller; the request itself stays in flight.
func (p *Pending) Await(ctx context.Context) (*models.Response, error) {
	select {
	case <-p.done:
		return p.resp, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Router tracks pending requests by id and routes results back to them.
type Router struct {
	mu      sync.Mutex
	pending map[string]*Pending
}

// New creates an empty Router.
func New() *Router {
	return &Router{pending: make(map[string]*Pending)}
}

// Register creates and tracks a result slot for req. A duplicate id is a
// submission error: two callers cannot share one slot.
func (r *Router) Register(req *models.Request) (*Pending, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pending[req.ID]; exists {
		return nil, fmt.Errorf("request id %q already pending", req.ID)
	}
	p := NewPending(req)
	r.pending[req.ID] = p
	return p, nil
}

// ResolveSuccess delivers a response to the caller waiting on requestID.
// Unknown or already-resolved ids are logged and ignored so that races with
// cancellation never crash the dispatch loop.
func (r *Router) ResolveSuccess(requestID string, resp *models.Response) {
	p, ok := r.take(requestID)
	if !ok {
		log.Printf("router: no pending request %s, dropping response", requestID)
		return
	}
	if !p.resolve(resp, nil) {
		log.Printf("router: request %s already resolved, dropping response", requestID)
	}
}

// ResolveFailure delivers a terminal error to the caller waiting on requestID.
func (r *Router) ResolveFailure(requestID string, err error) {
	p, ok := r.take(requestID)
	if !ok {
		log.Printf("router: no pending request %s, dropping error: %v", requestID, err)
		return
	}
	if !p.resolve(nil, err) {
		log.Printf("router: request %s already resolved, dropping error: %v", requestID, err)
	}
}

// take removes and returns the pending entry for an id.
func (r *Router) take(requestID string) (*Pending, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[requestID]
	if ok {
		delete(r.pending, requestID)
	}
	return p, ok
}

// PendingCount returns the number of unresolved requests.
func (r *Router) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
