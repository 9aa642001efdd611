package reminder

import (
	"context"
	"time"

	"planner/internal/transport"
)

// Notification is the payload captured at scheduling time. It is never mutated.
type Notification struct {
	TaskID   string
	TaskName string
	Title    string
	Body     string
	Target   transport.Target
}

// Handle identifies a scheduled reminder.
type Handle struct {
	ID uint64
	At time.Time
}

// Reminder is a scheduled notification.
type Reminder struct {
	Handle
	Notification
}

// Sink receives due reminders on the loop goroutine. Implementations must
// not block (hand off to a queue instead).
type Sink interface {
	Deliver(ctx context.Context, r Reminder)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r Reminder)

func (f SinkFunc) Deliver(ctx context.Context, r Reminder) { f(ctx, r) }

// ScheduledEvent / FiredEvent are published on the event bus.
type ScheduledEvent struct {
	ID     uint64    `json:"id"`
	TaskID string    `json:"task_id"`
	At     time.Time `json:"at"`
}

type FiredEvent struct {
	ID       uint64        `json:"id"`
	TaskID   string        `json:"task_id"`
	At       time.Time     `json:"at"`
	FiredAt  time.Time     `json:"fired_at"`
	Lateness time.Duration `json:"lateness"`
}
