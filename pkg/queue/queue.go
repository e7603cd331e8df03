// Package queue accumulates per-model requests into size- and time-bounded
// batches.
package queue

import (
	"context"
	"time"

	"github.com/Dieugene/agentic-doc-processing/pkg/router"
	"github.com/google/uuid"
)

// Batch is an ordered group of pending requests pulled together for one
// dispatch. Membership is fixed at creation: a retry resends the same batch,
// it never absorbs newly arrived requests.
type Batch struct {
	ID        string
	Model     string
	Entries   []*router.Pending
	CreatedAt time.Time
}

// Size returns the number of entries in the batch.
func (b *Batch) Size() int {
	return len(b.Entries)
}

// RequestIDs returns the ids of all entries, in batch order.
func (b *Batch) RequestIDs() []string {
	ids := make([]string, len(b.Entries))
	for i, e := range b.Entries {
		ids[i] = e.Req.ID
	}
	return ids
}

// Queue holds submitted requests for one model until the dispatch loop pulls
// them as a batch.
type Queue struct {
	model        string
	batchSize    int
	batchTimeout time.Duration
	entries      chan *router.Pending
}

// New creates a Queue for one model. depth bounds the channel buffer; with a
// finite set of producers it is effectively never reached.
func New(model string, batchSize int, batchTimeout time.Duration, depth int) *Queue {
	return &Queue{
		model:        model,
		batchSize:    batchSize,
		batchTimeout: batchTimeout,
		entries:      make(chan *router.Pending, depth),
	}
}

// Put enqueues a pending request.
func (q *Queue) Put(p *router.Pending) {
	q.entries <- p
}

// Len returns the number of requests waiting in the queue.
func (q *Queue) Len() int {
	return len(q.entries)
}

// TryGet returns the next waiting entry without blocking. Used to drain the
// queue at shutdown.
func (q *Queue) TryGet() (*router.Pending, bool) {
	select {
	case p := <-q.entries:
		return p, true
	default:
		return nil, false
	}
}

// GetBatch blocks until at least one request arrives, then accumulates more
// until the batch is full or batchTimeout has elapsed since the first entry
// was accepted. It returns a non-empty batch unless ctx is done before any
// request arrives.
func (q *Queue) GetBatch(ctx context.Context) (*Batch, error) {
	var first *router.Pending
	select {
	case first = <-q.entries:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	batch := &Batch{
		ID:        uuid.NewString(),
		Model:     q.model,
		Entries:   []*router.Pending{first},
		CreatedAt: time.Now(),
	}

	if q.batchSize <= 1 {
		return batch, nil
	}

	timer := time.NewTimer(q.batchTimeout)
	defer timer.Stop()

	for len(batch.Entries) < q.batchSize {
		select {
		case p := <-q.entries:
			batch.Entries = append(batch.Entries, p)
		case <-timer.C:
			return batch, nil
		case <-ctx.Done():
			// Shutdown mid-accumulation: hand back what we have so the
			// executor can resolve it.
			return batch, nil
		}
	}
	return batch, nil
}
