package chat

import (
	"errors"
	"fmt"

	"github.com/PaulBabatuyi/chatsync/internal/data"
)

var (
	// ErrNotFound is data.ErrNotFound re-exported for callers of this package.
	ErrNotFound = data.ErrNotFound

	// ErrWriteFailed wraps any failed remote round trip.
	ErrWriteFailed = errors.New("write failed")

	// ErrNotAuthenticated is returned when an operation runs without a session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrConflict is returned when a message id is reused for a different message.
	ErrConflict = errors.New("message id conflict")

	// ErrInvalidMessage is returned for messages or records that fail validation.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrNotParticipant is returned when the caller is not one of the two
	// parties of a conversation, or names the wrong other party.
	ErrNotParticipant = errors.New("not a participant")

	// ErrSenderListExists is the legacy send failure: the sender already has a
	// conversation list, and the legacy path refuses to update it.
	ErrSenderListExists = errors.New("sender conversation list already exists")
)

// writeFailed tags err as a failed round trip, keeping the cause inspectable.
func writeFailed(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrWriteFailed, err)
}

// ErrInvalidUser is returned when registering a user with missing fields.
var ErrInvalidUser = errors.New("invalid user")
