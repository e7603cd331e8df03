// Package provider defines the outbound remote-call contract and its
// concrete implementations.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dieugene/agentic-doc-processing/pkg/models"
)

// APIError is a status-bearing error from a remote inference endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// StatusOf extracts the HTTP status code from err, or 0 if err carries none.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Result is the outcome for one request within an invoked batch.
type Result struct {
	Response *models.Response
	Err      error
}

// Invoker sends a batch of requests to one remote model. Results are aligned
// positionally with reqs. A non-nil error means the whole batch failed and no
// per-request results are available.
type Invoker interface {
	Invoke(ctx context.Context, modelName string, reqs []*models.Request) ([]Result, error)
}
