package chat

import (
	"github.com/PaulBabatuyi/chatsync/internal/normalize"
)

// Session identifies the signed-in user for the duration of one request.
// It is built from verified token claims and passed to every operation.
type Session struct {
	Email     string
	SafeEmail string
	Name      string
}

// NewSession builds a session for email, deriving the safe key.
func NewSession(email, name string) *Session {
	return &Session{
		Email:     normalize.Email(email),
		SafeEmail: normalize.SafeEmail(email),
		Name:      name,
	}
}

func (s *Session) valid() bool {
	return s != nil && s.SafeEmail != ""
}
