package chat

import (
	"context"
	"errors"
	"time"

	"github.com/PaulBabatuyi/chatsync/internal/data"
)

// EventType names a change to a user's conversation view.
type EventType string

const (
	EventConversationCreated EventType = "conversation.created"
	EventMessageSent         EventType = "message.sent"
	EventConversationDeleted EventType = "conversation.deleted"
)

// Event is delivered once per affected participant.
type Event struct {
	Type           EventType           `json:"type"`
	Recipient      string              `json:"recipient"`
	ConversationID string              `json:"conversation_id"`
	Conversation   *data.Conversation  `json:"conversation,omitempty"`
	Message        *data.MessageRecord `json:"message,omitempty"`
	OccurredAt     time.Time           `json:"occurred_at"`
}

// ConversationListener is told about every successful change. Errors are
// logged by the coordinator and never fail the operation.
type ConversationListener interface {
	ConversationChanged(ctx context.Context, ev Event) error
}

// ListenerFunc adapts a function to ConversationListener.
type ListenerFunc func(ctx context.Context, ev Event) error

func (f ListenerFunc) ConversationChanged(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Listeners fans an event out to every listener and joins their errors.
type Listeners []ConversationListener

func (ls Listeners) ConversationChanged(ctx context.Context, ev Event) error {
	var errs []error
	for _, l := range ls {
		if l == nil {
			continue
		}
		if err := l.ConversationChanged(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
