package chat

import (
	"fmt"
	"time"

	"github.com/PaulBabatuyi/chatsync/internal/data"
)

// DateLayout is the stored date format: medium date plus long time, en-US.
const DateLayout = "Jan 2, 2006 at 3:04:05 PM MST"

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate reverses FormatDate.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Body is the content of a message: Text, Photo or Video.
type Body interface {
	Kind() data.MessageKind
	content() string
}

// Text is a plain text message.
type Text struct{ Body string }

// Photo is an image message; URL points at the uploaded media.
type Photo struct{ URL string }

// Video is a video message; URL points at the uploaded media.
type Video struct{ URL string }

func (Text) Kind() data.MessageKind  { return data.KindText }
func (Photo) Kind() data.MessageKind { return data.KindPhoto }
func (Video) Kind() data.MessageKind { return data.KindVideo }

func (t Text) content() string  { return t.Body }
func (p Photo) content() string { return p.URL }
func (v Video) content() string { return v.URL }

// Content returns the single content string a body is stored as.
func Content(b Body) string {
	if b == nil {
		return ""
	}
	return b.content()
}

// Message is a validated message.
type Message struct {
	ID          string
	SenderEmail string // safe email
	SenderName  string
	Date        string // DateLayout
	Body        Body
	Read        bool
}

// Validate checks the fields every stored message must carry.
func (m Message) Validate() error {
	switch {
	case m.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidMessage)
	case m.SenderEmail == "":
		return fmt.Errorf("%w: missing sender", ErrInvalidMessage)
	case m.Body == nil:
		return fmt.Errorf("%w: missing body", ErrInvalidMessage)
	case m.Body.content() == "":
		return fmt.Errorf("%w: empty %s content", ErrInvalidMessage, m.Body.Kind())
	}
	return nil
}

// SentAt parses the stored date.
func (m Message) SentAt() (time.Time, error) {
	return ParseDate(m.Date)
}

// Record encodes m for storage. is_read is always written false.
func (m Message) Record() data.MessageRecord {
	return data.MessageRecord{
		ID:          m.ID,
		Type:        string(m.Body.Kind()),
		Content:     m.Body.content(),
		Date:        m.Date,
		SenderEmail: m.SenderEmail,
		IsRead:      false,
		Name:        m.SenderName,
	}
}

// DecodeRecord validates a stored record and turns it back into a Message.
func DecodeRecord(r data.MessageRecord) (Message, error) {
	var body Body
	switch data.MessageKind(r.Type) {
	case data.KindText:
		body = Text{Body: r.Content}
	case data.KindPhoto:
		body = Photo{URL: r.Content}
	case data.KindVideo:
		body = Video{URL: r.Content}
	default:
		return Message{}, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, r.Type)
	}

	m := Message{
		ID:          r.ID,
		SenderEmail: r.SenderEmail,
		SenderName:  r.Name,
		Date:        r.Date,
		Body:        body,
		Read:        r.IsRead,
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// sameMessage reports whether two records carry the same payload.
func sameMessage(a, b data.MessageRecord) bool {
	return a.ID == b.ID && a.Type == b.Type && a.Content == b.Content && a.SenderEmail == b.SenderEmail && a.Date == b.Date
}
