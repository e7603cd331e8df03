package tokens

import (
	"fmt"

	"github.com/Dieugene/agentic-doc-processing/pkg/models"
)

// DefaultResponseEstimate is the conservative completion-size assumption used
// for admission decisions before actual usage is known.
const DefaultResponseEstimate = 1000

// Counter estimates the token cost of text for a given model.
type Counter interface {
	// Count returns the approximate token count of text.
	Count(text, model string) int
	// CountRequest returns the approximate token count of a full request,
	// including messages and tool declarations.
	CountRequest(req *models.Request) int
	// EstimateResponse returns a conservative estimate of completion tokens.
	EstimateResponse() int
}

// Heuristic is a tokenizer-free Counter using the common one-token-per-four-
// characters approximation. It is intentionally rough: suitable for rate-limit
// admission, never for billing.
type Heuristic struct {
	ResponseEstimate int
}

// NewHeuristic returns a Heuristic counter with the default response estimate.
func NewHeuristic() *Heuristic {
	return &Heuristic{ResponseEstimate: DefaultResponseEstimate}
}

// Count returns len(text)/4.
func (h *Heuristic) Count(text, model string) int {
	return len(text) / 4
}

// CountRequest sums message contents plus tool descriptions and parameters.
func (h *Heuristic) CountRequest(req *models.Request) int {
	total := 0
	for _, msg := range req.Messages {
		total += h.Count(msg.Content, req.Model)
	}
	for _, tool := range req.Tools {
		total += h.Count(tool.Description, req.Model)
		total += h.Count(fmt.Sprint(tool.Parameters), req.Model)
	}
	return total
}

// EstimateResponse returns the configured fixed completion estimate.
func (h *Heuristic) EstimateResponse() int {
	if h.ResponseEstimate > 0 {
		return h.ResponseEstimate
	}
	return DefaultResponseEstimate
}
