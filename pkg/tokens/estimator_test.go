package tokens

import (
	"strings"
	"testing"

	"github.com/Dieugene/agentic-doc-processing/pkg/models"
)

func TestCount(t *testing.T) {
	h := NewHeuristic()
	if got := h.Count("", "m"); got != 0 {
		t.Errorf("empty text: expected 0, got %d", got)
	}
	if got := h.Count(strings.Repeat("a", 400), "m"); got != 100 {
		t.Errorf("400 chars: expected 100, got %d", got)
	}
	if got := h.Count("abc", "m"); got != 0 {
		t.Errorf("3 chars: expected 0, got %d", got)
	}
}

func TestCountRequest(t *testing.T) {
	h := NewHeuristic()
	req := &models.Request{
		Model: "m",
		Messages: []models.Message{
			{Role: "system", Content: strings.Repeat("s", 40)},
			{Role: "user", Content: strings.Repeat("u", 80)},
		},
	}
	if got := h.CountRequest(req); got != 30 {
		t.Errorf("expected 30 tokens, got %d", got)
	}
}

func TestCountRequestIncludesTools(t *testing.T) {
	h := NewHeuristic()
	bare := &models.Request{
		Model:    "m",
		Messages: []models.Message{{Role: "user", Content: strings.Repeat("u", 40)}},
	}
	withTools := &models.Request{
		Model:    "m",
		Messages: bare.Messages,
		Tools: []models.Tool{{
			Name:        "search",
			Description: strings.Repeat("d", 80),
			Parameters:  map[string]any{"query": "string"},
		}},
	}
	if h.CountRequest(withTools) <= h.CountRequest(bare) {
		t.Error("tool declarations should add to the request cost")
	}
}

func TestEstimateResponse(t *testing.T) {
	h := NewHeuristic()
	if got := h.EstimateResponse(); got != DefaultResponseEstimate {
		t.Errorf("expected %d, got %d", DefaultResponseEstimate, got)
	}
	h.ResponseEstimate = 250
	if got := h.EstimateResponse(); got != 250 {
		t.Errorf("expected 250, got %d", got)
	}
}
