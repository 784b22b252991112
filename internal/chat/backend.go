// Package chat implements the conversation sync layer: the user directory,
// message threads, and the coordinator that keeps the duplicated
// conversation summaries of both participants in step with the thread.
//
// Every write is a whole-value read-modify-write against a backend. Nothing
// here serializes concurrent writers; two callers appending to the same
// thread or list at once can lose one update.
package chat

import (
	"context"

	"github.com/PaulBabatuyi/chatsync/internal/data"
)

// ProfileBackend stores profile nodes and their conversation lists.
// Conversations returns data.ErrNotFound when the list does not exist.
type ProfileBackend interface {
	ProfileExists(ctx context.Context, safeEmail string) (bool, error)
	Profile(ctx context.Context, safeEmail string) (*data.Profile, error)
	PutProfile(ctx context.Context, profile *data.Profile) error
	Conversations(ctx context.Context, safeEmail string) ([]data.Conversation, error)
	SetConversations(ctx context.Context, safeEmail string, convs []data.Conversation) error
}

// DirectoryBackend stores the global users list.
// Directory returns data.ErrNotFound when the list was never initialized.
type DirectoryBackend interface {
	Directory(ctx context.Context) ([]data.DirectoryEntry, error)
	SetDirectory(ctx context.Context, entries []data.DirectoryEntry) error
}

// ThreadBackend stores one message array per conversation.
// Messages returns data.ErrNotFound when the thread does not exist.
type ThreadBackend interface {
	Messages(ctx context.Context, conversationID string) ([]data.MessageRecord, error)
	SetMessages(ctx context.Context, conversationID string, msgs []data.MessageRecord) error
}

// BlobStore accepts bytes at a path and hands back a download URL.
type BlobStore interface {
	Put(ctx context.Context, path string, b []byte) (string, error)
	URL(ctx context.Context, path string) (string, error)
}

var (
	_ ProfileBackend   = (*data.ProfilesStore)(nil)
	_ DirectoryBackend = (*data.DirectoryStore)(nil)
	_ ThreadBackend    = (*data.ThreadsStore)(nil)
	_ BlobStore        = (*data.MediaStore)(nil)
)
