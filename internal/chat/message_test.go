package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaulBabatuyi/chatsync/internal/data"
	"github.com/PaulBabatuyi/chatsync/internal/data/memory"
)

func TestFormatDate(t *testing.T) {
	got := FormatDate(testNow)
	assert.Equal(t, "Mar 5, 2024 at 2:07:09 PM UTC", got)

	back, err := ParseDate(got)
	require.NoError(t, err)
	assert.True(t, back.Equal(testNow))
}

func TestMessageValidate(t *testing.T) {
	valid := Message{ID: "x", SenderEmail: "a-x-com", Date: "d", Body: Text{Body: "hi"}}
	require.NoError(t, valid.Validate())

	tests := map[string]func(m *Message){
		"missing id":     func(m *Message) { m.ID = "" },
		"missing sender": func(m *Message) { m.SenderEmail = "" },
		"missing body":   func(m *Message) { m.Body = nil },
		"empty text":     func(m *Message) { m.Body = Text{} },
		"empty photo":    func(m *Message) { m.Body = Photo{} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			m := valid
			mutate(&m)
			assert.ErrorIs(t, m.Validate(), ErrInvalidMessage)
		})
	}
}

func TestRecordRoundTrip(t *testing.T) {
	for _, body := range []Body{Text{Body: "hi"}, Photo{URL: "http://x/p.png"}, Video{URL: "http://x/v.mov"}} {
		m := Message{ID: "id", SenderEmail: "a-x-com", SenderName: "Ann Lee", Date: "d", Body: body, Read: true}
		rec := m.Record()
		assert.False(t, rec.IsRead, "records are always written unread")
		assert.Equal(t, string(body.Kind()), rec.Type)

		back, err := DecodeRecord(rec)
		require.NoError(t, err)
		assert.Equal(t, body, back.Body)
		assert.Equal(t, "a-x-com", back.SenderEmail)
		assert.Equal(t, "Ann Lee", back.SenderName)
	}
}

func TestDecodeRecordRejectsUnknownType(t *testing.T) {
	_, err := DecodeRecord(data.MessageRecord{ID: "id", Type: "location", Content: "1,2", SenderEmail: "a"})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestIDGeneratorGuardsCollisions(t *testing.T) {
	now := testNow
	g := NewIDGenerator(func() time.Time { return now })

	id1, date := g.Next("b@x.com", "a@x.com")
	id2, _ := g.Next("b@x.com", "a@x.com")
	id3, _ := g.Next("c@x.com", "a@x.com")

	assert.Equal(t, "b-x-com_a-x-com_"+date, id1)
	assert.Equal(t, id1+"_2", id2)
	assert.Equal(t, "c-x-com_a-x-com_"+date, id3)

	now = now.Add(time.Second)
	id4, _ := g.Next("b@x.com", "a@x.com")
	assert.Equal(t, "b-x-com_a-x-com_"+FormatDate(now), id4)
}

func TestConversationID(t *testing.T) {
	assert.Equal(t, "conversation_abc", ConversationID("abc"))
}

func TestAppendMessageIdempotent(t *testing.T) {
	ctx := context.Background()
	threads := NewThreads(memory.NewThreads(), quietLogger())
	first := Message{ID: "1", SenderEmail: "a", Date: "d", Body: Text{Body: "one"}}
	second := Message{ID: "2", SenderEmail: "a", Date: "d", Body: Text{Body: "two"}}

	require.NoError(t, threads.CreateThread(ctx, "c", first))

	ok, err := threads.AppendMessage(ctx, "c", second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = threads.AppendMessage(ctx, "c", second)
	require.NoError(t, err)
	assert.False(t, ok)

	clash := second
	clash.Body = Text{Body: "other"}
	_, err = threads.AppendMessage(ctx, "c", clash)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = threads.AppendMessage(ctx, "missing", second)
	assert.ErrorIs(t, err, data.ErrNotFound)
}

func TestFetchMessagesSkipsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewThreads()
	require.NoError(t, backend.SetMessages(ctx, "c", []data.MessageRecord{
		{ID: "1", Type: "text", Content: "ok", SenderEmail: "a", Date: "d"},
		{ID: "2", Type: "sticker", Content: "?", SenderEmail: "a", Date: "d"},
		{ID: "3", Type: "text", Content: "", SenderEmail: "a", Date: "d"},
		{ID: "4", Type: "photo", Content: "http://p", SenderEmail: "b", Date: "d"},
	}))

	msgs, err := NewThreads(backend, quietLogger()).FetchMessages(ctx, "c")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "1", msgs[0].ID)
	assert.Equal(t, Photo{URL: "http://p"}, msgs[1].Body)
}

func TestListeners(t *testing.T) {
	var got []EventType
	l := Listeners{
		ListenerFunc(func(_ context.Context, ev Event) error { got = append(got, ev.Type); return nil }),
		nil,
		failingListener{},
	}
	err := l.ConversationChanged(context.Background(), Event{Type: EventMessageSent})
	assert.Error(t, err)
	assert.Equal(t, []EventType{EventMessageSent}, got)
}

func TestParticipantsFromFirstMessage(t *testing.T) {
	tests := []struct {
		name      string
		rec       data.MessageRecord
		sender    string
		recipient string
		ok        bool
	}{
		{"plain", data.MessageRecord{ID: "b-x-com_a-x-com_D", SenderEmail: "a-x-com", Date: "D"}, "a-x-com", "b-x-com", true},
		{"collision suffix", data.MessageRecord{ID: "b-x-com_a-x-com_D_2", SenderEmail: "a-x-com", Date: "D"}, "a-x-com", "b-x-com", true},
		{"underscore in email", data.MessageRecord{ID: "b_c-x-com_a-x-com_D", SenderEmail: "a-x-com", Date: "D"}, "a-x-com", "b_c-x-com", true},
		{"sender not in id", data.MessageRecord{ID: "b-x-com_z-x-com_D", SenderEmail: "a-x-com", Date: "D"}, "", "", false},
		{"no recipient", data.MessageRecord{ID: "_a-x-com_D", SenderEmail: "a-x-com", Date: "D"}, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, recipient, ok := participants(tt.rec)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.sender, sender)
			assert.Equal(t, tt.recipient, recipient)
		})
	}
}
