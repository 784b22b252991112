package main

import (
	"github.com/PaulBabatuyi/chatsync/internal/chat"
	"github.com/PaulBabatuyi/chatsync/internal/data"
	v1 "github.com/PaulBabatuyi/chatsync/rpc/chatsync/v1"
)

func toMessage(m chat.Message) v1.Message {
	return v1.Message{
		ID:          m.ID,
		Kind:        string(m.Body.Kind()),
		Content:     chat.Content(m.Body),
		Date:        m.Date,
		SenderEmail: m.SenderEmail,
		SenderName:  m.SenderName,
		IsRead:      m.Read,
	}
}

func recordToMessage(r data.MessageRecord) v1.Message {
	return v1.Message{
		ID:          r.ID,
		Kind:        r.Type,
		Content:     r.Content,
		Date:        r.Date,
		SenderEmail: r.SenderEmail,
		SenderName:  r.Name,
		IsRead:      r.IsRead,
	}
}

func toConversation(c data.Conversation) v1.Conversation {
	return v1.Conversation{
		ID:             c.ID,
		Name:           c.Name,
		OtherUserEmail: c.OtherUserEmail,
		LatestMessage: v1.LatestMessage{
			Date:    c.LatestMessage.Date,
			Message: c.LatestMessage.Message,
			IsRead:  c.LatestMessage.IsRead,
		},
	}
}

func toEvent(ev chat.Event) *v1.Event {
	out := &v1.Event{
		Type:           string(ev.Type),
		ConversationID: ev.ConversationID,
		OccurredAt:     ev.OccurredAt,
	}
	if ev.Conversation != nil {
		c := toConversation(*ev.Conversation)
		out.Conversation = &c
	}
	if ev.Message != nil {
		m := recordToMessage(*ev.Message)
		out.Message = &m
	}
	return out
}
