package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/PaulBabatuyi/chatsync/internal/chat"
	"github.com/PaulBabatuyi/chatsync/internal/observability"
	v1 "github.com/PaulBabatuyi/chatsync/rpc/chatsync/v1"
)

// ErrNotConnected is returned by SendToUser when the user has no connection.
var ErrNotConnected = errors.New("user not connected")

// EventSender is a connected observer: an Observe stream or a websocket.
type EventSender interface {
	Send(*v1.Event) error
}

// kinded senders report their transport for the observers gauge.
type kinded interface{ Kind() string }

func senderKind(s EventSender) string {
	if k, ok := s.(kinded); ok {
		return k.Kind()
	}
	return "grpc"
}

// serialSender serializes Send; streams and websockets allow one writer.
type serialSender struct {
	mu   sync.Mutex
	next EventSender
}

func (s *serialSender) Send(ev *v1.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Send(ev)
}

func (s *serialSender) Kind() string { return senderKind(s.next) }

// ConnectionHub maps safe emails to their connected observers so conversation
// changes can be pushed to every endpoint of a user. Delivery is best-effort.
type ConnectionHub struct {
	mu      sync.RWMutex
	streams map[string]map[int64]EventSender
	nextID  int64
}

// NewConnectionHub creates a new hub instance.
func NewConnectionHub() *ConnectionHub {
	return &ConnectionHub{streams: make(map[string]map[int64]EventSender)}
}

// Register adds s for safeEmail and returns the id to unregister it with.
func (h *ConnectionHub) Register(safeEmail string, s EventSender) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.streams[safeEmail]; !ok {
		h.streams[safeEmail] = make(map[int64]EventSender)
	}

	h.nextID++
	id := h.nextID
	h.streams[safeEmail][id] = s
	observability.IncObservers(senderKind(s))
	return id
}

// Unregister removes a connection. Unknown ids are ignored.
func (h *ConnectionHub) Unregister(safeEmail string, id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.streams[safeEmail]
	if !ok {
		return
	}
	s, ok := conns[id]
	if !ok {
		return
	}
	delete(conns, id)
	observability.DecObservers(senderKind(s))
	if len(conns) == 0 {
		delete(h.streams, safeEmail)
	}
}

// Connected reports how many connections safeEmail has.
func (h *ConnectionHub) Connected(safeEmail string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[safeEmail])
}

// SendToUser sends ev to every connection of safeEmail and returns the first
// error. Connections whose send fails are unregistered.
func (h *ConnectionHub) SendToUser(safeEmail string, ev *v1.Event) error {
	h.mu.RLock()
	conns := make(map[int64]EventSender, len(h.streams[safeEmail]))
	for id, s := range h.streams[safeEmail] {
		conns[id] = s
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return fmt.Errorf("%s: %w", safeEmail, ErrNotConnected)
	}

	var firstErr error
	var failedIDs []int64
	for id, st := range conns {
		if err := st.Send(ev); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			failedIDs = append(failedIDs, id)
			continue
		}
		observability.IncEventDelivered(senderKind(st), ev.Type)
	}

	for _, id := range failedIDs {
		h.Unregister(safeEmail, id)
	}
	return firstErr
}

// ConversationChanged pushes ev to the recipient's connections. An offline
// recipient is not an error.
func (h *ConnectionHub) ConversationChanged(_ context.Context, ev chat.Event) error {
	err := h.SendToUser(ev.Recipient, toEvent(ev))
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

var _ chat.ConversationListener = (*ConnectionHub)(nil)
