package notifier

import (
	"context"
	"time"

	"planner/internal/transport"
)

// Config controls the async notification pipeline.
type Config struct {
	Enabled       bool
	Workers       int
	QueueSize     int
	RatePerSec    int
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	SendTimeout   time.Duration
	HistorySize   int
}

// Message is one outbound displayMessage call.
type Message struct {
	Target transport.Target
	Title  string
	Body   string
	// Kind tags the message for events/history ("reminder", "agenda").
	Kind string
	// AtMostOnce limits retries to errors wrapping transport.ErrNotDelivered.
	AtMostOnce bool
}

// Display is the outbound half of a UI collaborator.
type Display interface {
	DisplayMessage(ctx context.Context, to transport.Target, title, body string) error
}

type HistoryItem struct {
	At    time.Time `json:"at"`
	Kind  string    `json:"kind"`
	Title string    `json:"title"`
}

// MessageEvent is emitted on the event bus for notifier lifecycle events.
type MessageEvent struct {
	Kind     string    `json:"kind"`
	Channel  string    `json:"channel"`
	ChatID   int64     `json:"chat_id,omitempty"`
	Title    string    `json:"title"`
	At       time.Time `json:"at"`
	Attempts int       `json:"attempts,omitempty"`
	Error    string    `json:"error,omitempty"`
}
