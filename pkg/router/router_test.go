package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Dieugene/agentic-doc-processing/pkg/models"
)

func req(id string) *models.Request {
	return &models.Request{ID: id, Model: "m"}
}

func TestRegisterAndResolveSuccess(t *testing.T) {
	r := New()
	p, err := r.Register(req("r1"))
	if err != nil {
		t.Fatal(err)
	}

	go r.ResolveSuccess("r1", &models.Response{RequestID: "r1", Content: "ok"})

	resp, err := p.Await(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "ok" {
		t.Errorf("expected ok, got %q", resp.Content)
	}
	if r.PendingCount() != 0 {
		t.Errorf("expected empty router, got %d pending", r.PendingCount())
	}
}

func TestResolveFailure(t *testing.T) {
	r := New()
	p, _ := r.Register(req("r1"))

	want := errors.New("remote exploded")
	r.ResolveFailure("r1", want)

	_, err := p.Await(context.Background())
	if !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
}

func TestDuplicateRegistration(t *testing.T) {
	r := New()
	if _, err := r.Register(req("r1")); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Register(req("r1")); err == nil {
		t.Fatal("expected error for duplicate id")
	}
}

func TestResolveUnknownIDIsNoOp(t *testing.T) {
	r := New()
	// Must not panic or block.
	r.ResolveSuccess("ghost", &models.Response{RequestID: "ghost"})
	r.ResolveFailure("ghost", errors.New("x"))
}

func TestAtMostOnceResolution(t *testing.T) {
	r := New()
	p, _ := r.Register(req("r1"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				r.ResolveSuccess("r1", &models.Response{RequestID: "r1", Content: "win"})
				p.resolve(&models.Response{RequestID: "r1", Content: "direct"}, nil)
			} else {
				r.ResolveFailure("r1", errors.New("lose"))
			}
		}(i)
	}
	wg.Wait()

	// Exactly one outcome was stored; Await must return it consistently.
	resp1, err1 := p.Await(context.Background())
	resp2, err2 := p.Await(context.Background())
	if (resp1 == nil) != (resp2 == nil) || !errors.Is(err1, err2) && err1 != err2 {
		t.Error("Await returned inconsistent outcomes")
	}
	if resp1 == nil && err1 == nil {
		t.Error("no outcome delivered")
	}
}

func TestAwaitCancellationDetachesCaller(t *testing.T) {
	r := New()
	p, _ := r.Register(req("r1"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Await(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}

	// The request is still in flight; a late resolution is delivered to the
	// slot without error.
	r.ResolveSuccess("r1", &models.Response{RequestID: "r1", Content: "late"})
	resp, err := p.Await(context.Background())
	if err != nil || resp.Content != "late" {
		t.Errorf("late resolution lost: %v %v", resp, err)
	}
}
