package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/PaulBabatuyi/chatsync/internal/data"
	"github.com/PaulBabatuyi/chatsync/internal/normalize"
	"github.com/PaulBabatuyi/chatsync/internal/observability"
)

var tracer = otel.Tracer("chatsync/chat")

// Coordinator runs the multi-record operations that keep both participants'
// conversation summaries and the thread in step.
type Coordinator struct {
	profiles ProfileBackend
	threads  *Threads
	blobs    BlobStore
	listener ConversationListener
	ids      *IDGenerator
	now      func() time.Time
	log      *log.Logger

	legacySenderUpdate bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithListener registers the listener told about every change.
func WithListener(l ConversationListener) Option {
	return func(c *Coordinator) { c.listener = l }
}

// WithClock overrides time.Now for ids, dates and events.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithLegacySenderUpdate makes SendMessage fail with ErrSenderListExists
// whenever the sender already has a conversation list, as older clients did,
// instead of updating the sender's summary.
func WithLegacySenderUpdate(enabled bool) Option {
	return func(c *Coordinator) { c.legacySenderUpdate = enabled }
}

// NewCoordinator wires the coordinator to its backends.
func NewCoordinator(profiles ProfileBackend, threads ThreadBackend, blobs BlobStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		profiles: profiles,
		blobs:    blobs,
		now:      time.Now,
		log:      log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithPrefix("sync")
	c.threads = NewThreads(threads, c.log)
	c.ids = NewIDGenerator(c.now)
	return c
}

// Threads exposes the thread store the coordinator writes through.
func (c *Coordinator) Threads() *Threads { return c.threads }

func (c *Coordinator) begin(ctx context.Context, op string, s *Session) (context.Context, func(*error)) {
	ctx, span := tracer.Start(ctx, "chat."+op)
	if s != nil {
		span.SetAttributes(attribute.String("chat.user", s.SafeEmail))
	}
	start := time.Now()
	return ctx, func(errp *error) {
		if err := *errp; err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		observability.ObserveSyncOp(op, time.Since(start), *errp)
	}
}

// NewMessage stamps body with a fresh id and the current date.
func (c *Coordinator) NewMessage(s *Session, otherEmail string, body Body) (Message, error) {
	if !s.valid() {
		return Message{}, ErrNotAuthenticated
	}
	id, date := c.ids.Next(otherEmail, s.SafeEmail)
	m := Message{
		ID:          id,
		SenderEmail: s.SafeEmail,
		SenderName:  s.Name,
		Date:        date,
		Body:        body,
	}
	return m, m.Validate()
}

// CreateConversation starts a conversation with otherEmail. name is the
// display name the sender sees for the other user.
//
//  1. the id is "conversation_" + first.ID
//  2. two mirrored summaries are built
//  3. the recipient's summary is appended to (or creates) their list
//  4. the sender's summary is appended by rewriting the sender's profile
//  5. the thread is created with first
//
// When step 4 or 5 fails the summaries already written are removed again,
// best-effort.
func (c *Coordinator) CreateConversation(ctx context.Context, s *Session, otherEmail, name string, first Message) (id string, err error) {
	ctx, done := c.begin(ctx, "create_conversation", s)
	defer done(&err)

	if !s.valid() {
		return "", ErrNotAuthenticated
	}
	if err := first.Validate(); err != nil {
		return "", err
	}

	other := normalize.SafeEmail(otherEmail)
	id = ConversationID(first.ID)

	recipientSummary := newSummary(id, s.Name, s.SafeEmail, first)
	senderSummary := newSummary(id, name, other, first)

	if err := c.appendSummary(ctx, other, recipientSummary); err != nil {
		return "", err
	}

	profile, err := c.profiles.Profile(ctx, s.SafeEmail)
	if err != nil {
		c.compensate(ctx, id, other)
		if errors.Is(err, data.ErrNotFound) {
			return "", fmt.Errorf("sender profile %s: %w", s.SafeEmail, err)
		}
		return "", writeFailed("read sender profile", err)
	}
	profile.Conversations = append(profile.Conversations, senderSummary)
	if err := c.profiles.PutProfile(ctx, profile); err != nil {
		c.compensate(ctx, id, other)
		return "", writeFailed("write sender profile", err)
	}

	if err := c.threads.CreateThread(ctx, id, first); err != nil {
		c.compensate(ctx, id, other, s.SafeEmail)
		return "", err
	}

	rec := first.Record()
	c.notify(ctx,
		Event{Type: EventConversationCreated, Recipient: s.SafeEmail, ConversationID: id, Conversation: &senderSummary, Message: &rec},
		Event{Type: EventConversationCreated, Recipient: other, ConversationID: id, Conversation: &recipientSummary, Message: &rec},
	)
	c.log.Info("conversation created", "id", id, "from", s.SafeEmail, "to", other)
	return id, nil
}

// SendMessage appends m to an existing conversation, then refreshes the
// latest-message summary on the sender's side and on the recipient's side.
// A retried send whose message is already in the thread still refreshes the
// summaries. Partial failure leaves the thread ahead of the summaries.
func (c *Coordinator) SendMessage(ctx context.Context, s *Session, conversationID, otherEmail, name string, m Message) (err error) {
	ctx, done := c.begin(ctx, "send_message", s)
	defer done(&err)

	if !s.valid() {
		return ErrNotAuthenticated
	}
	if err := c.authorize(ctx, s, conversationID, otherEmail); err != nil {
		return err
	}
	return c.sendMessage(ctx, s, conversationID, otherEmail, name, m)
}

// sendMessage is SendMessage after the caller was authorized.
func (c *Coordinator) sendMessage(ctx context.Context, s *Session, conversationID, otherEmail, name string, m Message) error {
	if m.SenderEmail != s.SafeEmail {
		return fmt.Errorf("message %s sent as %s: %w", m.ID, s.SafeEmail, ErrNotParticipant)
	}
	other := normalize.SafeEmail(otherEmail)

	appended, err := c.threads.AppendMessage(ctx, conversationID, m)
	if err != nil {
		return err
	}
	if !appended {
		c.log.Debug("message already stored, refreshing summaries", "conversation", conversationID, "id", m.ID)
	}

	senderSummary := newSummary(conversationID, name, other, m)
	if c.legacySenderUpdate {
		if err := c.legacySenderSummary(ctx, s.SafeEmail, senderSummary); err != nil {
			return err
		}
	} else if err := c.upsertLatest(ctx, s.SafeEmail, senderSummary); err != nil {
		return err
	}

	recipientSummary := newSummary(conversationID, s.Name, s.SafeEmail, m)
	if err := c.upsertLatest(ctx, other, recipientSummary); err != nil {
		return err
	}

	rec := m.Record()
	c.notify(ctx,
		Event{Type: EventMessageSent, Recipient: s.SafeEmail, ConversationID: conversationID, Conversation: &senderSummary, Message: &rec},
		Event{Type: EventMessageSent, Recipient: other, ConversationID: conversationID, Conversation: &recipientSummary, Message: &rec},
	)
	return nil
}

// DeleteConversation removes the summary from the caller's own list only.
// The other participant keeps their copy and the thread is left in place.
func (c *Coordinator) DeleteConversation(ctx context.Context, s *Session, conversationID string) (err error) {
	ctx, done := c.begin(ctx, "delete_conversation", s)
	defer done(&err)

	if !s.valid() {
		return ErrNotAuthenticated
	}

	convs, err := c.profiles.Conversations(ctx, s.SafeEmail)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return fmt.Errorf("conversations of %s: %w", s.SafeEmail, err)
		}
		return writeFailed("read conversations", err)
	}

	idx := indexOf(convs, conversationID)
	if idx < 0 {
		return fmt.Errorf("conversation %s: %w", conversationID, data.ErrNotFound)
	}
	convs = slices.Delete(convs, idx, idx+1)

	if err := c.profiles.SetConversations(ctx, s.SafeEmail, convs); err != nil {
		return writeFailed("delete conversation", err)
	}

	c.notify(ctx, Event{Type: EventConversationDeleted, Recipient: s.SafeEmail, ConversationID: conversationID})
	return nil
}

// Conversations lists the caller's conversation summaries. A caller who
// never had a conversation gets data.ErrNotFound.
func (c *Coordinator) Conversations(ctx context.Context, s *Session) (convs []data.Conversation, err error) {
	ctx, done := c.begin(ctx, "list_conversations", s)
	defer done(&err)

	if !s.valid() {
		return nil, ErrNotAuthenticated
	}
	convs, err = c.profiles.Conversations(ctx, s.SafeEmail)
	if err != nil {
		return nil, fmt.Errorf("conversations of %s: %w", s.SafeEmail, err)
	}
	return convs, nil
}

// Messages returns a conversation's messages, oldest first.
func (c *Coordinator) Messages(ctx context.Context, s *Session, conversationID string) (msgs []Message, err error) {
	ctx, done := c.begin(ctx, "fetch_messages", s)
	defer done(&err)

	if !s.valid() {
		return nil, ErrNotAuthenticated
	}
	if err := c.authorize(ctx, s, conversationID, ""); err != nil {
		return nil, err
	}
	return c.threads.FetchMessages(ctx, conversationID)
}

// authorize checks that s is a party of conversationID and, when otherEmail
// is set, that otherEmail is the other party. A missing thread is
// data.ErrNotFound.
func (c *Coordinator) authorize(ctx context.Context, s *Session, conversationID, otherEmail string) error {
	sender, recipient, err := c.threads.Participants(ctx, conversationID)
	if err != nil {
		return err
	}
	var peer string
	switch s.SafeEmail {
	case sender:
		peer = recipient
	case recipient:
		peer = sender
	default:
		c.log.Warn("conversation access denied", "conversation", conversationID, "user", s.SafeEmail)
		return fmt.Errorf("conversation %s: %w", conversationID, ErrNotParticipant)
	}
	if otherEmail != "" && normalize.SafeEmail(otherEmail) != peer {
		return fmt.Errorf("conversation %s with %s: %w", conversationID, normalize.SafeEmail(otherEmail), ErrNotParticipant)
	}
	return nil
}

func newSummary(id, name, other string, m Message) data.Conversation {
	return data.Conversation{
		ID:             id,
		Name:           name,
		OtherUserEmail: other,
		LatestMessage: data.LatestMessage{
			Date:    m.Date,
			Message: Content(m.Body),
			IsRead:  false,
		},
	}
}

func indexOf(convs []data.Conversation, id string) int {
	return slices.IndexFunc(convs, func(c data.Conversation) bool { return c.ID == id })
}

// appendSummary adds conv to owner's list, creating the list if needed.
func (c *Coordinator) appendSummary(ctx context.Context, owner string, conv data.Conversation) error {
	convs, err := c.profiles.Conversations(ctx, owner)
	if err != nil && !errors.Is(err, data.ErrNotFound) {
		return writeFailed("read conversations", err)
	}
	convs = append(convs, conv)
	if err := c.profiles.SetConversations(ctx, owner, convs); err != nil {
		return writeFailed("append conversation", err)
	}
	return nil
}

// upsertLatest refreshes the latest message of conv.ID in owner's list,
// appending conv when the id is missing and creating the list when absent.
func (c *Coordinator) upsertLatest(ctx context.Context, owner string, conv data.Conversation) error {
	convs, err := c.profiles.Conversations(ctx, owner)
	switch {
	case errors.Is(err, data.ErrNotFound):
		convs = []data.Conversation{conv}
	case err != nil:
		return writeFailed("read conversations", err)
	default:
		if idx := indexOf(convs, conv.ID); idx >= 0 {
			convs[idx].LatestMessage = conv.LatestMessage
		} else {
			convs = append(convs, conv)
		}
	}

	if err := c.profiles.SetConversations(ctx, owner, convs); err != nil {
		return writeFailed("update latest message", err)
	}
	return nil
}

// legacySenderSummary only writes when the sender has no list yet; an
// existing list is reported as ErrSenderListExists without any write.
func (c *Coordinator) legacySenderSummary(ctx context.Context, owner string, conv data.Conversation) error {
	_, err := c.profiles.Conversations(ctx, owner)
	switch {
	case err == nil:
		return fmt.Errorf("update sender %s: %w", owner, ErrSenderListExists)
	case !errors.Is(err, data.ErrNotFound):
		return writeFailed("read conversations", err)
	}
	if err := c.profiles.SetConversations(ctx, owner, []data.Conversation{conv}); err != nil {
		return writeFailed("create sender conversations", err)
	}
	return nil
}

// compensate removes conversationID from each owner's list. Failures are
// logged; the caller already reports the original error.
func (c *Coordinator) compensate(ctx context.Context, conversationID string, owners ...string) {
	for _, owner := range owners {
		convs, err := c.profiles.Conversations(ctx, owner)
		if err != nil {
			c.log.Warn("compensation read failed", "conversation", conversationID, "owner", owner, "err", err)
			continue
		}
		idx := indexOf(convs, conversationID)
		if idx < 0 {
			continue
		}
		convs = slices.Delete(convs, idx, idx+1)
		if err := c.profiles.SetConversations(ctx, owner, convs); err != nil {
			c.log.Warn("compensation write failed", "conversation", conversationID, "owner", owner, "err", err)
		}
	}
}

func (c *Coordinator) notify(ctx context.Context, events ...Event) {
	if c.listener == nil {
		return
	}
	for _, ev := range events {
		ev.OccurredAt = c.now()
		if err := c.listener.ConversationChanged(ctx, ev); err != nil {
			c.log.Warn("listener failed", "type", ev.Type, "recipient", ev.Recipient, "err", err)
		}
	}
}
