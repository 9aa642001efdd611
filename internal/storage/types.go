package storage

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Audit actions.
const (
	ActionTaskAdded      = "task.added"
	ActionReminderFired  = "reminder.fired"
	ActionReminderFailed = "reminder.failed"
)

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines file
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// AuditEntry records one task lifecycle step.
// Keep it compact and schema-stable.
type AuditEntry struct {
	At       time.Time `json:"at"`
	Action   string    `json:"action"`
	TaskID   string    `json:"task_id"`
	TaskName string    `json:"task_name"`
	TaskTime time.Time `json:"task_time"`
	Channel  string    `json:"channel,omitempty"`
	ChatID   int64     `json:"chat_id,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Store is the journal API used by the planner core.
type Store interface {
	AppendAudit(ctx context.Context, e AuditEntry) error
	// RecentAudit returns up to limit entries, oldest first.
	RecentAudit(ctx context.Context, limit int) ([]AuditEntry, error)
	Close() error
}
