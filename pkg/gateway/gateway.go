// Package gateway schedules remote inference calls: it batches requests per
// model, enforces sliding-window rate limits, retries transient failures, and
// routes each result back to its caller.
package gateway

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/Dieugene/agentic-doc-processing/pkg/audit"
	"github.com/Dieugene/agentic-doc-processing/pkg/config"
	"github.com/Dieugene/agentic-doc-processing/pkg/models"
	"github.com/Dieugene/agentic-doc-processing/pkg/provider"
	"github.com/Dieugene/agentic-doc-processing/pkg/queue"
	"github.com/Dieugene/agentic-doc-processing/pkg/ratelimit"
	"github.com/Dieugene/agentic-doc-processing/pkg/retry"
	"github.com/Dieugene/agentic-doc-processing/pkg/router"
	"github.com/Dieugene/agentic-doc-processing/pkg/tokens"
	"github.com/Dieugene/agentic-doc-processing/pkg/tracker"
	"github.com/google/uuid"
)

// Result pairs one submission with its outcome. Exactly one of Response and
// Err is set.
type Result struct {
	Response *models.Response
	Err      error
}

// Gateway owns one queue and one dispatch loop per configured model.
type Gateway struct {
	cfg     *config.Config
	routes  *router.Router
	limiter *ratelimit.Limiter
	auditor *audit.Logger
	usage   tracker.Tracker

	queues    map[string]*queue.Queue
	executors map[string]*Executor

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires a Gateway from configuration and a provider registry. auditor and
// usage may be nil to disable auditing and usage persistence.
func New(cfg *config.Config, reg *provider.Registry, auditor *audit.Logger, usage tracker.Tracker) (*Gateway, error) {
	g := &Gateway{
		cfg:       cfg,
		routes:    router.New(),
		limiter:   ratelimit.New(cfg.Models),
		auditor:   auditor,
		usage:     usage,
		queues:    make(map[string]*queue.Queue, len(cfg.Models)),
		executors: make(map[string]*Executor, len(cfg.Models)),
	}

	policy := retry.NewPolicy(cfg.Retry)
	counter := tokens.NewHeuristic()

	for _, mc := range cfg.Models {
		inv, ok := reg.Lookup(mc.ID)
		if !ok {
			return nil, fmt.Errorf("no invoker registered for model %q", mc.ID)
		}
		g.queues[mc.ID] = queue.New(mc.ID, mc.BatchSize, mc.BatchTimeout, mc.QueueDepth)
		g.executors[mc.ID] = NewExecutor(mc, inv, g.limiter, policy, g.routes, counter, auditor, usage)
	}

	return g, nil
}

// Start spins one background dispatch loop per configured model. It returns
// immediately; loops run until Stop or ctx cancellation.
func (g *Gateway) Start(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		return // already running
	}

	loopCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel

	for modelID := range g.queues {
		q := g.queues[modelID]
		ex := g.executors[modelID]
		g.wg.Add(1)
		go func(modelID string) {
			defer g.wg.Done()
			g.dispatchLoop(loopCtx, modelID, q, ex)
		}(modelID)
	}
}

// dispatchLoop pulls batches and executes them until the context is done.
func (g *Gateway) dispatchLoop(ctx context.Context, modelID string, q *queue.Queue, ex *Executor) {
	for {
		batch, err := q.GetBatch(ctx)
		if err != nil {
			return
		}
		ex.ExecuteBatch(ctx, batch)
		if ctx.Err() != nil {
			return
		}
	}
}

// Stop cancels the dispatch loops, waits for them to drain, and fails any
// requests still waiting in the queues with a cancellation error.
func (g *Gateway) Stop() {
	g.mu.Lock()
	cancel := g.cancel
	g.cancel = nil
	g.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	g.wg.Wait()

	for _, q := range g.queues {
		for {
			p, ok := q.TryGet()
			if !ok {
				break
			}
			if !p.Resolved() {
				g.routes.ResolveFailure(p.Req.ID, &Error{
					Kind: KindCancelled,
					Err:  context.Canceled,
				})
			}
		}
	}
	log.Printf("gateway: stopped, %d requests still pending", g.routes.PendingCount())
}

// Submit enqueues a request and suspends until its result is ready. An empty
// request id is filled with a generated one. Unknown models fail immediately.
func (g *Gateway) Submit(ctx context.Context, req *models.Request) (*models.Response, error) {
	q, ok := g.queues[req.Model]
	if !ok {
		return nil, &Error{Kind: KindFatal, Err: fmt.Errorf("unknown model %q", req.Model)}
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	pending, err := g.routes.Register(req)
	if err != nil {
		return nil, &Error{Kind: KindFatal, Err: err}
	}

	_ = g.auditor.Log(ctx, models.Event{
		Type:      models.EventEnqueue,
		Model:     req.Model,
		RequestID: req.ID,
		AgentID:   req.AgentID,
	})

	q.Put(pending)
	return pending.Await(ctx)
}

// SubmitMany issues every request concurrently and returns results aligned
// 1:1 with the input order, regardless of which model queue each landed in.
func (g *Gateway) SubmitMany(ctx context.Context, reqs []*models.Request) []Result {
	results := make([]Result, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req *models.Request) {
			defer wg.Done()
			resp, err := g.Submit(ctx, req)
			results[i] = Result{Response: resp, Err: err}
		}(i, req)
	}
	wg.Wait()

	return results
}

// QueueLen reports how many requests are waiting for a model. Zero for
// unknown models.
func (g *Gateway) QueueLen(model string) int {
	q, ok := g.queues[model]
	if !ok {
		return 0
	}
	return q.Len()
}
