package gateway

import "fmt"

// Error kinds surfaced to callers.
const (
	KindFatal     = "fatal"     // non-retryable remote or validation failure
	KindTransient = "transient" // retryable failure with attempts exhausted
	KindCancelled = "cancelled" // shutdown or caller cancellation
)

// Error is the terminal failure delivered to a caller. It carries the failure
// kind, the last underlying error, and how many attempts were made.
type Error struct {
	Kind     string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: %s after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
