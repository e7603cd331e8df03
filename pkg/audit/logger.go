// Package audit persists every scheduling decision to an append-only SQLite
// log. Records carry identifiers, sizes, and timings; request payloads are
// never written.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Dieugene/agentic-doc-processing/pkg/models"
	_ "modernc.org/sqlite"
)

// Logger writes and queries scheduling events in a dedicated SQLite database.
type Logger struct {
	db   *sql.DB
	cfg  models.AuditConfig
	done chan struct{}
	wg   sync.WaitGroup
}

// New opens the audit SQLite database and creates the schema.
func New(cfg models.AuditConfig) (*Logger, error) {
	db, err := sql.Open("sqlite", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	l := &Logger{db: db, cfg: cfg, done: make(chan struct{})}

	if cfg.RetentionDays > 0 {
		l.wg.Add(1)
		go l.retentionLoop()
	}

	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS gateway_events (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type  TEXT NOT NULL,
		model       TEXT NOT NULL,
		request_id  TEXT,
		agent_id    TEXT,
		batch_id    TEXT,
		request_ids TEXT,
		batch_size  INTEGER,
		attempt     INTEGER,
		reason      TEXT,
		wait_ms     INTEGER,
		delay_ms    INTEGER,
		error       TEXT,
		latency_ms  INTEGER,
		outcome     TEXT,
		created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_events_type ON gateway_events(event_type)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_events_model ON gateway_events(model)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_events_created ON gateway_events(created_at)`)
	return err
}

// Log inserts one event. Safe to call on a nil Logger (audit disabled).
func (l *Logger) Log(ctx context.Context, event models.Event) error {
	if l == nil || l.db == nil {
		return nil
	}

	var idsJSON string
	if len(event.RequestIDs) > 0 {
		b, _ := json.Marshal(event.RequestIDs)
		idsJSON = string(b)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO gateway_events
		(event_type, model, request_id, agent_id, batch_id, request_ids,
		 batch_size, attempt, reason, wait_ms, delay_ms, error, latency_ms,
		 outcome, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.Type, event.Model, event.RequestID, event.AgentID, event.BatchID,
		idsJSON, event.BatchSize, event.Attempt, event.Reason, event.WaitMs,
		event.DelayMs, event.Error, event.LatencyMs, event.Outcome, createdAt,
	)
	return err
}

// Query returns events matching the given options, newest first.
func (l *Logger) Query(ctx context.Context, opts models.EventQueryOpts) ([]models.Event, error) {
	q := `SELECT id, event_type, model, request_id, agent_id, batch_id,
		request_ids, batch_size, attempt, reason, wait_ms, delay_ms, error,
		latency_ms, outcome, created_at
		FROM gateway_events WHERE 1=1`
	var args []any

	if opts.Type != "" {
		q += " AND event_type = ?"
		args = append(args, opts.Type)
	}
	if opts.Model != "" {
		q += " AND model = ?"
		args = append(args, opts.Model)
	}
	if opts.RequestID != "" {
		q += " AND (request_id = ? OR request_ids LIKE ?)"
		args = append(args, opts.RequestID, "%\""+opts.RequestID+"\"%")
	}
	if opts.BatchID != "" {
		q += " AND batch_id = ?"
		args = append(args, opts.BatchID)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since)
	}

	q += " ORDER BY created_at DESC, id DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		var requestID, agentID, batchID, idsJSON, reason, errText, outcome sql.NullString
		if err := rows.Scan(
			&e.ID, &e.Type, &e.Model, &requestID, &agentID, &batchID,
			&idsJSON, &e.BatchSize, &e.Attempt, &reason, &e.WaitMs, &e.DelayMs,
			&errText, &e.LatencyMs, &outcome, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.RequestID = requestID.String
		e.AgentID = agentID.String
		e.BatchID = batchID.String
		e.Reason = reason.String
		e.Error = errText.String
		e.Outcome = outcome.String
		if idsJSON.Valid && idsJSON.String != "" {
			_ = json.Unmarshal([]byte(idsJSON.String), &e.RequestIDs)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Stats returns aggregate counts grouped by event type and day.
func (l *Logger) Stats(ctx context.Context) ([]models.EventStat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT event_type, date(created_at) as day, count(*) as cnt
		 FROM gateway_events GROUP BY event_type, day ORDER BY day DESC, event_type`)
	if err != nil {
		return nil, fmt.Errorf("event stats: %w", err)
	}
	defer rows.Close()

	var stats []models.EventStat
	for rows.Next() {
		var s models.EventStat
		var day sql.NullString
		if err := rows.Scan(&s.Type, &day, &s.Count); err != nil {
			return nil, fmt.Errorf("scan event stat: %w", err)
		}
		s.Day = day.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes events older than the configured retention period.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -l.cfg.RetentionDays)
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM gateway_events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			_, _ = l.Cleanup(context.Background())
		}
	}
}
