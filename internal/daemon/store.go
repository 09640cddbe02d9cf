package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// =============================================================================
// Deployment History Store
// =============================================================================

// Event is one recorded deployment action.
type Event struct {
	ID        int64     `db:"id"`
	Module    string    `db:"module"`
	Action    string    `db:"action"`  // deploy, task, stop, restart
	Outcome   string    `db:"outcome"` // deployed, already_deployed, completed, failed, ...
	CreatedAt time.Time `db:"created_at"`
}

// History records deployment events in SQLite so an operator can audit
// what the daemon did across restarts. The orchestration itself never
// reads this back; it is an append-mostly log.
type History struct {
	db *sqlx.DB
}

// NewHistory wraps an open, migrated database handle.
func NewHistory(db *sqlx.DB) *History {
	return &History{db: db}
}

// Record appends one event.
func (h *History) Record(ctx context.Context, module, action, outcome string) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO events (module, action, outcome, created_at) VALUES (?, ?, ?, ?)`,
		module, action, outcome, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// Recent returns the newest events, most recent first.
func (h *History) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []Event
	err := h.db.SelectContext(ctx, &events,
		`SELECT id, module, action, outcome, created_at FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// Close closes the underlying database.
func (h *History) Close() error {
	return h.db.Close()
}
