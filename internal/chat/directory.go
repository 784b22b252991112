package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/PaulBabatuyi/chatsync/internal/data"
	"github.com/PaulBabatuyi/chatsync/internal/normalize"
)

// User is what an identity provider hands over at registration.
type User struct {
	FirstName string
	LastName  string
	Email     string
}

// SafeEmail is the user's document key.
func (u User) SafeEmail() string { return normalize.SafeEmail(u.Email) }

// DisplayName is the name stored in the directory.
func (u User) DisplayName() string { return u.FirstName + " " + u.LastName }

// ProfilePictureFileName is the avatar's blob file name.
func (u User) ProfilePictureFileName() string { return normalize.ProfilePictureFileName(u.Email) }

// Directory maps safe emails to profiles and keeps the global users list.
type Directory struct {
	profiles ProfileBackend
	list     DirectoryBackend
	now      func() time.Time
	log      *log.Logger
}

// NewDirectory returns a Directory. A nil logger uses log.Default().
func NewDirectory(profiles ProfileBackend, list DirectoryBackend, logger *log.Logger) *Directory {
	if logger == nil {
		logger = log.Default()
	}
	return &Directory{profiles: profiles, list: list, now: time.Now, log: logger.WithPrefix("directory")}
}

// UserExists looks the normalized key up.
func (d *Directory) UserExists(ctx context.Context, email string) (bool, error) {
	ok, err := d.profiles.ProfileExists(ctx, normalize.SafeEmail(email))
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return ok, nil
}

// Profile fetches a user's profile node.
func (d *Directory) Profile(ctx context.Context, email string) (*data.Profile, error) {
	p, err := d.profiles.Profile(ctx, normalize.SafeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", normalize.SafeEmail(email), err)
	}
	return p, nil
}

// RegisterUser writes the profile node, then appends {name, email} to the
// users list. The append only runs once the profile write succeeded; the two
// writes are not atomic and entries are not deduplicated.
//
// A node already holding conversations (someone wrote to this user before
// they registered) keeps its list and creation time.
func (d *Directory) RegisterUser(ctx context.Context, u User) error {
	if strings.TrimSpace(u.Email) == "" || strings.TrimSpace(u.FirstName) == "" || strings.TrimSpace(u.LastName) == "" {
		return fmt.Errorf("%w: first name, last name and email are required", ErrInvalidUser)
	}

	profile := &data.Profile{
		SafeEmail: u.SafeEmail(),
		Email:     normalize.Email(u.Email),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: d.now().UTC(),
	}
	existing, err := d.profiles.Profile(ctx, profile.SafeEmail)
	switch {
	case err == nil:
		profile.Conversations = existing.Conversations
		if !existing.CreatedAt.IsZero() {
			profile.CreatedAt = existing.CreatedAt
		}
	case !errors.Is(err, data.ErrNotFound):
		return writeFailed("read profile", err)
	}

	if err := d.profiles.PutProfile(ctx, profile); err != nil {
		return writeFailed("insert profile", err)
	}

	entries, err := d.list.Directory(ctx)
	if err != nil && !errors.Is(err, data.ErrNotFound) {
		return writeFailed("read users list", err)
	}
	entries = append(entries, data.DirectoryEntry{Name: u.DisplayName(), Email: u.SafeEmail()})

	if err := d.list.SetDirectory(ctx, entries); err != nil {
		return writeFailed("append users list", err)
	}

	d.log.Debug("registered user", "email", u.SafeEmail(), "directory_size", len(entries))
	return nil
}

// ListUsers returns the whole users list. It fails with data.ErrNotFound
// when nobody has registered yet.
func (d *Directory) ListUsers(ctx context.Context) ([]data.DirectoryEntry, error) {
	entries, err := d.list.Directory(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return entries, nil
}

// SearchUsers fetches the full list and keeps entries whose name starts with
// term, ignoring case. The caller's own entry is dropped. Order is list order.
func (d *Directory) SearchUsers(ctx context.Context, s *Session, term string) ([]data.DirectoryEntry, error) {
	if !s.valid() {
		return nil, ErrNotAuthenticated
	}
	entries, err := d.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return FilterUsers(entries, s.SafeEmail, term), nil
}

// FilterUsers is the linear scan behind SearchUsers.
func FilterUsers(entries []data.DirectoryEntry, selfSafeEmail, term string) []data.DirectoryEntry {
	term = strings.ToLower(term)
	var out []data.DirectoryEntry
	for _, e := range entries {
		if e.Email == selfSafeEmail {
			continue
		}
		if strings.HasPrefix(strings.ToLower(e.Name), term) {
			out = append(out, e)
		}
	}
	return out
}
