package models

import "time"

// Event types recorded by the audit log. One row per scheduling decision.
const (
	EventEnqueue   = "enqueue"    // request accepted into a model queue
	EventBatch     = "batch"      // batch dispatched, with outcome and latency
	EventRateLimit = "rate_limit" // admission denied, with reason and wait
	EventRetry     = "retry"      // transient failure, attempt will be repeated
	EventError     = "error"      // terminal failure for a batch or request
)

// Event is a single scheduling decision. It carries identifiers, sizes, and
// timings only; message content never enters the audit log.
type Event struct {
	ID         int64     `json:"id"`
	Type       string    `json:"type"`
	Model      string    `json:"model"`
	RequestID  string    `json:"request_id,omitempty"`
	AgentID    string    `json:"agent_id,omitempty"`
	BatchID    string    `json:"batch_id,omitempty"`
	RequestIDs []string  `json:"request_ids,omitempty"`
	BatchSize  int       `json:"batch_size,omitempty"`
	Attempt    int       `json:"attempt,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	WaitMs     int64     `json:"wait_ms,omitempty"`
	DelayMs    int64     `json:"delay_ms,omitempty"`
	Error      string    `json:"error,omitempty"`
	LatencyMs  int64     `json:"latency_ms,omitempty"`
	Outcome    string    `json:"outcome,omitempty"` // "success" | "retry" | "error"
	CreatedAt  time.Time `json:"created_at"`
}

// EventQueryOpts specifies filters for querying audit events.
type EventQueryOpts struct {
	Type      string
	Model     string
	RequestID string
	BatchID   string
	Since     time.Time
	Limit     int
}

// EventStat holds aggregate event counts for a type/day combination.
type EventStat struct {
	Type  string
	Day   string
	Count int
}

// AuditConfig controls the audit logging subsystem.
type AuditConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
}
