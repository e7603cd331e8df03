package gateway

import (
	"context"
	"errors"
	"time"

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
)

// minRecheck floors the sleep between admission re-checks so a zero-wait
// denial cannot spin.
const minRecheck = 10 * time.Millisecond

// Executor dispatches batches for one model: admission, invoke, retry, and
// result distribution. Every entry of every batch handed to ExecuteBatch is
// resolved by the time it returns.
type Executor struct {
	cfg     config.ModelConfig
	invoker provider.Invoker
	limiter *ratelimit.Limiter
	policy  *retry.Policy
	routes  *router.Router
	counter tokens.Counter
	auditor *audit.Logger
	usage   tracker.Tracker
}

// NewExecutor wires an Executor for one model. auditor and usage may be nil.
func NewExecutor(
	cfg config.ModelConfig,
	invoker provider.Invoker,
	limiter *ratelimit.Limiter,
	policy *retry.Policy,
	routes *router.Router,
	counter tokens.Counter,
	auditor *audit.Logger,
	usage tracker.Tracker,
) *Executor {
	return &Executor{
		cfg:     cfg,
		invoker: invoker,
		limiter: limiter,
		policy:  policy,
		routes:  routes,
		counter: counter,
		auditor: auditor,
		usage:   usage,
	}
}

// ExecuteBatch sends one batch, retrying transient batch-wide failures. The
// same batch membership is kept across attempts.
func (e *Executor) ExecuteBatch(ctx context.Context, batch *queue.Batch) {
	if batch == nil || batch.Size() == 0 {
		return
	}

	estimates := e.admit(ctx, batch)
	if ctx.Err() != nil {
		e.failAll(batch, &Error{Kind: KindCancelled, Attempts: 0, Err: ctx.Err()})
		return
	}

	// Charge the window at dispatch commit with the conservative estimate.
	// Actual usage is not retro-corrected; it goes to the persistent tracker.
	for _, est := range estimates {
		e.limiter.Record(batch.Model, est)
	}

	reqs := make([]*models.Request, batch.Size())
	for i, entry := range batch.Entries {
		reqs[i] = entry.Req
	}

	for attempt := 0; ; attempt++ {
		start := time.Now()
		results, err := e.invoker.Invoke(ctx, e.cfg.ModelName, reqs)
		latency := time.Since(start).Milliseconds()

		if err == nil {
			e.distribute(batch, results, attempt)
			e.log(models.Event{
				Type:       models.EventBatch,
				Model:      batch.Model,
				BatchID:    batch.ID,
				RequestIDs: batch.RequestIDs(),
				BatchSize:  batch.Size(),
				Attempt:    attempt,
				LatencyMs:  latency,
				Outcome:    "success",
			})
			return
		}

		if ctx.Err() != nil {
			// Shutdown or caller cancellation: no further attempts.
			e.failAll(batch, &Error{Kind: KindCancelled, Attempts: attempt + 1, Err: err})
			e.logBatchError(batch, attempt, latency, err)
			return
		}

		if e.policy.ShouldRetry(err, attempt) {
			// Compute the delay once and reuse the same value for both the
			// sleep and the audit record.
			delay := e.policy.Delay(attempt)
			e.log(models.Event{
				Type:       models.EventRetry,
				Model:      batch.Model,
				BatchID:    batch.ID,
				RequestIDs: batch.RequestIDs(),
				BatchSize:  batch.Size(),
				Attempt:    attempt,
				DelayMs:    delay.Milliseconds(),
				Error:      err.Error(),
				Outcome:    "retry",
			})
			if !sleep(ctx, delay) {
				e.failAll(batch, &Error{Kind: KindCancelled, Attempts: attempt + 1, Err: ctx.Err()})
				return
			}
			continue
		}

		kind := KindFatal
		if retry.Transient(err) {
			kind = KindTransient
		}
		e.failAll(batch, &Error{Kind: kind, Attempts: attempt + 1, Err: err})
		e.logBatchError(batch, attempt, latency, err)
		return
	}
}

// admit waits until every entry of the batch fits under the model's window
// ceilings and returns the per-entry cost estimates. Denials wait, they never
// reject.
func (e *Executor) admit(ctx context.Context, batch *queue.Batch) []int {
	estimates := make([]int, batch.Size())
	for i, entry := range batch.Entries {
		estimates[i] = e.counter.CountRequest(entry.Req) + e.counter.EstimateResponse()
	}

	for i, entry := range batch.Entries {
		for {
			d := e.limiter.Check(batch.Model, estimates[i])
			if d.Allowed {
				break
			}
			e.log(models.Event{
				Type:      models.EventRateLimit,
				Model:     batch.Model,
				RequestID: entry.Req.ID,
				AgentID:   entry.Req.AgentID,
				BatchID:   batch.ID,
				Reason:    d.Reason,
				WaitMs:    d.Wait.Milliseconds(),
			})
			wait := d.Wait
			if wait < minRecheck {
				wait = minRecheck
			}
			if !sleep(ctx, wait) {
				return estimates
			}
		}
	}
	return estimates
}

// distribute resolves each entry from its positional result and records
// actual usage for successes.
func (e *Executor) distribute(batch *queue.Batch, results []provider.Result, attempt int) {
	for i, entry := range batch.Entries {
		if i >= len(results) {
			e.routes.ResolveFailure(entry.Req.ID, &Error{
				Kind:     KindFatal,
				Attempts: attempt + 1,
				Err:      errors.New("provider returned short result list"),
			})
			continue
		}
		res := results[i]
		if res.Err != nil {
			kind := KindFatal
			if retry.Transient(res.Err) {
				kind = KindTransient
			}
			e.routes.ResolveFailure(entry.Req.ID, &Error{Kind: kind, Attempts: attempt + 1, Err: res.Err})
			e.log(models.Event{
				Type:      models.EventError,
				Model:     batch.Model,
				RequestID: entry.Req.ID,
				AgentID:   entry.Req.AgentID,
				BatchID:   batch.ID,
				Attempt:   attempt,
				Error:     res.Err.Error(),
				Outcome:   "error",
			})
			continue
		}
		e.recordUsage(entry.Req, res.Response)
		e.routes.ResolveSuccess(entry.Req.ID, res.Response)
	}
}

// recordUsage persists actual token usage, falling back to the estimate when
// the response carries none.
func (e *Executor) recordUsage(req *models.Request, resp *models.Response) {
	if e.usage == nil {
		return
	}
	rec := models.UsageRecord{
		Model:     req.Model,
		RequestID: req.ID,
		AgentID:   req.AgentID,
	}
	if resp.Usage != nil {
		rec.PromptTokens = resp.Usage.PromptTokens
		rec.CompletionTokens = resp.Usage.CompletionTokens
		rec.TotalTokens = resp.Usage.TotalTokens
	} else {
		rec.PromptTokens = e.counter.CountRequest(req)
		rec.CompletionTokens = e.counter.EstimateResponse()
		rec.TotalTokens = rec.PromptTokens + rec.CompletionTokens
		rec.Estimated = true
	}
	if err := e.usage.Record(context.Background(), rec); err != nil {
		e.log(models.Event{
			Type:      models.EventError,
			Model:     req.Model,
			RequestID: req.ID,
			Error:     "usage record: " + err.Error(),
		})
	}
}

// failAll resolves every still-unresolved entry of the batch with err.
func (e *Executor) failAll(batch *queue.Batch, err *Error) {
	for _, entry := range batch.Entries {
		if entry.Resolved() {
			continue
		}
		e.routes.ResolveFailure(entry.Req.ID, err)
	}
}

func (e *Executor) logBatchError(batch *queue.Batch, attempt int, latency int64, err error) {
	e.log(models.Event{
		Type:       models.EventError,
		Model:      batch.Model,
		BatchID:    batch.ID,
		RequestIDs: batch.RequestIDs(),
		BatchSize:  batch.Size(),
		Attempt:    attempt,
		Error:      err.Error(),
		LatencyMs:  latency,
		Outcome:    "error",
	})
}

// log writes an audit event. Audit failures never interrupt dispatch.
func (e *Executor) log(event models.Event) {
	_ = e.auditor.Log(context.Background(), event)
}

// sleep waits for d, returning false if ctx expired first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
