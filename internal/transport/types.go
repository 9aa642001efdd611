package transport

import (
	"context"
	"errors"

	"planner/internal/task"
)

// ErrNotDelivered marks a DisplayMessage error after which the user has seen
// nothing of the message, so sending it again cannot duplicate it. Adapters
// wrap it; other errors may follow a partial or unconfirmed delivery.
var ErrNotDelivered = errors.New("message not delivered")

// Target identifies the conversation a message goes to. Console ignores
// ChatID; Telegram uses it as the chat.
type Target struct {
	Channel string
	ChatID  int64
}

type UpdateKind string

const (
	UpdateSubmit UpdateKind = "submit"
	UpdateList   UpdateKind = "list"
	UpdateHelp   UpdateKind = "help"
	UpdateQuit   UpdateKind = "quit"
)

// Update is one inbound UI event. Draft is set for UpdateSubmit only.
type Update struct {
	Kind   UpdateKind
	Target Target
	Draft  *task.Draft
}

// Adapter is a UI collaborator: it collects task input as Updates and
// presents messages.
//
// DisplayMessage is fire-and-forget from the core's point of view; an adapter
// may block until the user has seen it.
type Adapter interface {
	Name() string
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error
	DisplayMessage(ctx context.Context, to Target, title, body string) error
}
