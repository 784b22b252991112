package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/PaulBabatuyi/chatsync/internal/data"
)

// Threads stores each conversation's messages as one ordered array.
type Threads struct {
	backend ThreadBackend
	log     *log.Logger
}

// NewThreads returns a Threads. A nil logger uses log.Default().
func NewThreads(backend ThreadBackend, logger *log.Logger) *Threads {
	if logger == nil {
		logger = log.Default()
	}
	return &Threads{backend: backend, log: logger.WithPrefix("threads")}
}

// CreateThread initializes a thread holding only first.
func (t *Threads) CreateThread(ctx context.Context, conversationID string, first Message) error {
	if err := first.Validate(); err != nil {
		return err
	}
	if err := t.backend.SetMessages(ctx, conversationID, []data.MessageRecord{first.Record()}); err != nil {
		return writeFailed("create thread", err)
	}
	return nil
}

// AppendMessage fetches the array, appends m and writes the array back.
// It reports false without writing when an identical message with the same
// id is already stored, so a retried send is harmless. A different message
// under an existing id is ErrConflict.
//
// The fetch and the write are separate round trips: a concurrent append to
// the same thread between them is overwritten.
func (t *Threads) AppendMessage(ctx context.Context, conversationID string, m Message) (bool, error) {
	if err := m.Validate(); err != nil {
		return false, err
	}

	msgs, err := t.backend.Messages(ctx, conversationID)
	if err != nil {
		return false, fmt.Errorf("append to %s: %w", conversationID, err)
	}

	rec := m.Record()
	for _, existing := range msgs {
		if existing.ID != rec.ID {
			continue
		}
		if sameMessage(existing, rec) {
			return false, nil
		}
		return false, fmt.Errorf("append to %s: %w: %s", conversationID, ErrConflict, rec.ID)
	}

	msgs = append(msgs, rec)
	if err := t.backend.SetMessages(ctx, conversationID, msgs); err != nil {
		return false, writeFailed("append message", err)
	}
	return true, nil
}

// FetchMessages returns every message, oldest first. Records that fail
// validation are skipped.
func (t *Threads) FetchMessages(ctx context.Context, conversationID string) ([]Message, error) {
	recs, err := t.backend.Messages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", conversationID, err)
	}

	out := make([]Message, 0, len(recs))
	for _, r := range recs {
		m, err := DecodeRecord(r)
		if err != nil {
			t.log.Warn("skipping stored message", "conversation", conversationID, "id", r.ID, "err", err)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Participants reads the two parties of a conversation from its first
// message: the sender, and the recipient whose safe email leads the
// message id (recipient_sender_date).
func (t *Threads) Participants(ctx context.Context, conversationID string) (sender, recipient string, err error) {
	recs, err := t.backend.Messages(ctx, conversationID)
	if err != nil {
		return "", "", fmt.Errorf("participants of %s: %w", conversationID, err)
	}
	if len(recs) == 0 {
		return "", "", fmt.Errorf("participants of %s: %w", conversationID, data.ErrNotFound)
	}
	sender, recipient, ok := participants(recs[0])
	if !ok {
		return "", "", fmt.Errorf("participants of %s: %w: malformed first message", conversationID, ErrInvalidMessage)
	}
	return sender, recipient, nil
}

func participants(first data.MessageRecord) (sender, recipient string, ok bool) {
	if first.SenderEmail == "" || first.Date == "" {
		return "", "", false
	}
	i := strings.Index(first.ID, "_"+first.SenderEmail+"_"+first.Date)
	if i <= 0 {
		return "", "", false
	}
	return first.SenderEmail, first.ID[:i], true
}
