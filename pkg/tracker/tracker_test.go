package tracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Dieugene/agentic-doc-processing/pkg/models"
)

func newTestTracker(t *testing.T) *SQLiteTracker {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	tr, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestRecordAndTotal(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		err := tr.Record(ctx, models.UsageRecord{
			Model: "fast", RequestID: "r", AgentID: "agent-1",
			PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	total, err := tr.TotalByModel(ctx, "fast", now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if total != 450 {
		t.Errorf("expected 450, got %d", total)
	}

	total, err = tr.TotalByModel(ctx, "other", now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Errorf("expected 0 for unused model, got %d", total)
	}
}

func TestTotalByModelRespectsSince(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = tr.Record(ctx, models.UsageRecord{
		Model: "fast", RequestID: "old", TotalTokens: 100,
		CreatedAt: now.Add(-2 * time.Hour),
	})
	_ = tr.Record(ctx, models.UsageRecord{
		Model: "fast", RequestID: "new", TotalTokens: 50,
		CreatedAt: now,
	})

	total, err := tr.TotalByModel(ctx, "fast", now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if total != 50 {
		t.Errorf("expected 50 within the hour, got %d", total)
	}
}

func TestSummary(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = tr.Record(ctx, models.UsageRecord{
		Model: "fast", RequestID: "r1", AgentID: "agent-1",
		PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150, CreatedAt: now,
	})
	_ = tr.Record(ctx, models.UsageRecord{
		Model: "smart", RequestID: "r2", AgentID: "agent-2",
		PromptTokens: 200, CompletionTokens: 100, TotalTokens: 300, CreatedAt: now,
	})

	summaries, err := tr.Summary(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}

	summaries, err = tr.Summary(ctx, "fast")
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if summaries[0].TotalTokens != 150 || summaries[0].AgentID != "agent-1" {
		t.Errorf("unexpected summary: %+v", summaries[0])
	}
}
