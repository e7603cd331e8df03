// Package tracker persists per-request token usage for reporting.
package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Dieugene/agentic-doc-processing/pkg/models"
)

// Tracker records and queries token usage.
type Tracker interface {
	// Record stores a usage record.
	Record(ctx context.Context, rec models.UsageRecord) error
	// TotalByModel returns total tokens used by a model since a given time.
	TotalByModel(ctx context.Context, model string, since time.Time) (int64, error)
	// Summary returns aggregated usage summaries, optionally filtered by model.
	Summary(ctx context.Context, model string) ([]models.UsageSummary, error)
	// Close releases resources.
	Close() error
}

// SQLiteTracker implements Tracker with a SQLite database.
type SQLiteTracker struct {
	db *sql.DB
}

const createTable = `
CREATE TABLE IF NOT EXISTS usage_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	model TEXT NOT NULL,
	request_id TEXT NOT NULL,
	agent_id TEXT NOT NULL DEFAULT '',
	prompt_tokens INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	total_tokens INTEGER NOT NULL,
	estimated INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_usage_model_time ON usage_records(model, created_at);
`

// New creates a SQLiteTracker and runs auto-migration.
func New(dbPath string) (*SQLiteTracker, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open tracker db: %w", err)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate tracker db: %w", err)
	}

	return &SQLiteTracker{db: db}, nil
}

// Record stores a usage record.
func (t *SQLiteTracker) Record(ctx context.Context, rec models.UsageRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO usage_records (model, request_id, agent_id, prompt_tokens, completion_tokens, total_tokens, estimated, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Model, rec.RequestID, rec.AgentID, rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens, rec.Estimated, createdAt,
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// TotalByModel returns total tokens used by a model since a given time.
func (t *SQLiteTracker) TotalByModel(ctx context.Context, model string, since time.Time) (int64, error) {
	var total int64
	err := t.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_tokens), 0) FROM usage_records WHERE model = ? AND created_at >= ?`,
		model, since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total usage: %w", err)
	}
	return total, nil
}

// Summary returns aggregated usage grouped by model and agent.
func (t *SQLiteTracker) Summary(ctx context.Context, model string) ([]models.UsageSummary, error) {
	query := `SELECT model, agent_id, COUNT(*), SUM(prompt_tokens), SUM(completion_tokens), SUM(total_tokens)
		 FROM usage_records`
	var args []any
	if model != "" {
		query += ` WHERE model = ?`
		args = append(args, model)
	}
	query += ` GROUP BY model, agent_id ORDER BY model, agent_id`

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.UsageSummary
	for rows.Next() {
		var s models.UsageSummary
		if err := rows.Scan(&s.Model, &s.AgentID, &s.RequestCount, &s.TotalPrompt, &s.TotalCompletion, &s.TotalTokens); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Close releases the database connection.
func (t *SQLiteTracker) Close() error {
	return t.db.Close()
}
