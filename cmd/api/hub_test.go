package main

import (
	"context"
	"errors"
	"testing"

	"github.com/PaulBabatuyi/chatsync/internal/chat"
	"github.com/PaulBabatuyi/chatsync/internal/data"
	v1 "github.com/PaulBabatuyi/chatsync/rpc/chatsync/v1"
)

type fakeSender struct {
	last *v1.Event
	n    int
	fail bool
}

func (f *fakeSender) Send(ev *v1.Event) error {
	if f.fail {
		return errors.New("send fail")
	}
	f.last = ev
	f.n++
	return nil
}

func TestConnectionHub_RegisterAndSend(t *testing.T) {
	hub := NewConnectionHub()

	senderA := &fakeSender{}
	senderB := &fakeSender{}

	idA := hub.Register("alice-example-com", senderA)
	_ = hub.Register("alice-example-com", senderB) // second connection

	if err := hub.SendToUser("alice-example-com", &v1.Event{Type: "message.sent", ConversationID: "c1"}); err != nil {
		t.Fatalf("expected send success, got error: %v", err)
	}
	if senderA.last == nil || senderA.last.ConversationID != "c1" {
		t.Fatalf("sender A did not receive event")
	}
	if senderB.last == nil || senderB.last.ConversationID != "c1" {
		t.Fatalf("sender B did not receive event")
	}

	hub.Unregister("alice-example-com", idA)

	if err := hub.SendToUser("alice-example-com", &v1.Event{ConversationID: "c2"}); err != nil {
		t.Fatalf("expected send success after unregistering one connection: %v", err)
	}
	if senderA.last.ConversationID == "c2" {
		t.Fatalf("sender A should not have received second event after unregister")
	}
	if got := hub.Connected("alice-example-com"); got != 1 {
		t.Fatalf("expected 1 connection, got %d", got)
	}
}

func TestConnectionHub_SendToOffline(t *testing.T) {
	hub := NewConnectionHub()

	if err := hub.SendToUser("nobody-example-com", &v1.Event{}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestConnectionHub_SendPartialFailure(t *testing.T) {
	hub := NewConnectionHub()

	ok := &fakeSender{}
	bad := &fakeSender{fail: true}

	_ = hub.Register("d-example-com", ok)
	_ = hub.Register("d-example-com", bad)

	if err := hub.SendToUser("d-example-com", &v1.Event{ConversationID: "x"}); err == nil {
		t.Fatalf("expected error due to partial sender failure")
	}

	// the failing connection is gone; the next send reaches only the healthy one
	if err := hub.SendToUser("d-example-com", &v1.Event{ConversationID: "y"}); err != nil {
		t.Fatalf("expected send to succeed after cleanup of failed connections: %v", err)
	}
	if ok.last == nil || ok.last.ConversationID != "y" {
		t.Fatalf("healthy sender did not receive event after cleanup")
	}
	if got := hub.Connected("d-example-com"); got != 1 {
		t.Fatalf("expected failed connection to be unregistered, %d left", got)
	}
}

func TestConnectionHub_ConversationChanged(t *testing.T) {
	hub := NewConnectionHub()
	s := &fakeSender{}
	hub.Register("bob-example-com", s)

	ev := chat.Event{
		Type:           chat.EventMessageSent,
		Recipient:      "bob-example-com",
		ConversationID: "conversation_1",
		Conversation:   &data.Conversation{ID: "conversation_1", Name: "Alice A"},
		Message:        &data.MessageRecord{ID: "m1", Type: "text", Content: "hi", SenderEmail: "alice-example-com"},
	}
	if err := hub.ConversationChanged(context.Background(), ev); err != nil {
		t.Fatalf("ConversationChanged: %v", err)
	}
	if s.last == nil || s.last.Type != "message.sent" || s.last.Message.Content != "hi" || s.last.Conversation.Name != "Alice A" {
		t.Fatalf("unexpected event delivered: %+v", s.last)
	}

	// offline recipients are not an error for the listener
	ev.Recipient = "carol-example-com"
	if err := hub.ConversationChanged(context.Background(), ev); err != nil {
		t.Fatalf("offline recipient should not fail: %v", err)
	}
}

func TestConnectionHub_UnregisterUnknownIsNoop(t *testing.T) {
	hub := NewConnectionHub()
	hub.Unregister("ghost", 42)
	id := hub.Register("ghost", &fakeSender{})
	hub.Unregister("ghost", id+1)
	if hub.Connected("ghost") != 1 {
		t.Fatalf("unknown id removed a connection")
	}
}
