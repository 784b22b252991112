package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PaulBabatuyi/chatsync/internal/normalize"
)

// conversationPrefix prefixes the first message id to form a conversation id.
const conversationPrefix = "conversation_"

// ConversationID derives the conversation id from its first message id.
func ConversationID(firstMessageID string) string {
	return conversationPrefix + firstMessageID
}

// IDGenerator builds message ids of the form other_sender_date. The date only
// has second resolution, so the generator remembers the ids it handed out in
// the current second and appends _2, _3, ... on a repeat. Collisions between
// processes are still possible.
type IDGenerator struct {
	mu     sync.Mutex
	now    func() time.Time
	second string
	issued map[string]int
}

// NewIDGenerator returns a generator reading time from now (time.Now if nil).
func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now, issued: make(map[string]int)}
}

// Next returns a message id and the formatted date it embeds.
func (g *IDGenerator) Next(otherEmail, senderEmail string) (id, date string) {
	date = FormatDate(g.now())
	base := fmt.Sprintf("%s_%s_%s", normalize.SafeEmail(otherEmail), normalize.SafeEmail(senderEmail), date)

	g.mu.Lock()
	defer g.mu.Unlock()

	if date != g.second {
		g.second = date
		clear(g.issued)
	}
	g.issued[base]++
	if n := g.issued[base]; n > 1 {
		return fmt.Sprintf("%s_%d", base, n), date
	}
	return base, date
}

// mediaFileName turns a message id into a blob file name; ids contain spaces.
func mediaFileName(prefix, messageID, ext string) string {
	return prefix + strings.ReplaceAll(messageID, " ", "-") + ext
}
