// Package memory holds in-process implementations of the data stores. They
// keep the same read/write granularity as the MongoDB stores (whole lists
// in, whole lists out) so the sync layer behaves identically on both.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/PaulBabatuyi/chatsync/internal/data"
	"github.com/PaulBabatuyi/chatsync/internal/normalize"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Profiles is the in-memory counterpart of data.ProfilesStore.
type Profiles struct {
	mu       sync.RWMutex
	profiles map[string]data.Profile
}

func NewProfiles() *Profiles {
	return &Profiles{profiles: make(map[string]data.Profile)}
}

func (p *Profiles) ProfileExists(_ context.Context, safeEmail string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	profile, ok := p.profiles[safeEmail]
	// A node created only by a conversation write is not a registered user
	return ok && profile.Email != "", nil
}

func (p *Profiles) Profile(_ context.Context, safeEmail string) (*data.Profile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	profile, ok := p.profiles[safeEmail]
	if !ok {
		return nil, data.ErrNotFound
	}
	profile.Conversations = slices.Clone(profile.Conversations)
	return &profile, nil
}

func (p *Profiles) PutProfile(_ context.Context, profile *data.Profile) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	stored := *profile
	if len(stored.Conversations) == 0 {
		stored.Conversations = nil
	} else {
		stored.Conversations = slices.Clone(stored.Conversations)
	}
	p.profiles[profile.SafeEmail] = stored
	return nil
}

func (p *Profiles) Conversations(_ context.Context, safeEmail string) ([]data.Conversation, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	profile, ok := p.profiles[safeEmail]
	if !ok || profile.Conversations == nil {
		return nil, data.ErrNotFound
	}
	return slices.Clone(profile.Conversations), nil
}

func (p *Profiles) SetConversations(_ context.Context, safeEmail string, convs []data.Conversation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	profile, ok := p.profiles[safeEmail]
	if !ok && len(convs) == 0 {
		return nil
	}
	profile.SafeEmail = safeEmail
	if len(convs) == 0 {
		profile.Conversations = nil
	} else {
		profile.Conversations = slices.Clone(convs)
	}
	p.profiles[safeEmail] = profile
	return nil
}

// Directory is the in-memory counterpart of data.DirectoryStore.
type Directory struct {
	mu          sync.RWMutex
	initialized bool
	entries     []data.DirectoryEntry
}

func NewDirectory() *Directory {
	return &Directory{}
}

func (d *Directory) Directory(_ context.Context) ([]data.DirectoryEntry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.initialized {
		return nil, data.ErrNotFound
	}
	return slices.Clone(d.entries), nil
}

func (d *Directory) SetDirectory(_ context.Context, entries []data.DirectoryEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initialized = true
	d.entries = slices.Clone(entries)
	return nil
}

// Threads is the in-memory counterpart of data.ThreadsStore.
type Threads struct {
	mu      sync.RWMutex
	threads map[string][]data.MessageRecord
}

func NewThreads() *Threads {
	return &Threads{threads: make(map[string][]data.MessageRecord)}
}

func (t *Threads) Messages(_ context.Context, conversationID string) ([]data.MessageRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	msgs, ok := t.threads[conversationID]
	if !ok {
		return nil, data.ErrNotFound
	}
	return slices.Clone(msgs), nil
}

func (t *Threads) SetMessages(_ context.Context, conversationID string, msgs []data.MessageRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.threads[conversationID] = slices.Clone(msgs)
	return nil
}

// Accounts is the in-memory counterpart of data.AccountsStore.
type Accounts struct {
	mu       sync.RWMutex
	accounts map[string]data.Account
}

func NewAccounts() *Accounts {
	return &Accounts{accounts: make(map[string]data.Account)}
}

func (a *Accounts) CreateAccount(_ context.Context, email, hashedPassword, firstName, lastName string) (*data.Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	email = normalize.Email(email)
	if _, ok := a.accounts[email]; ok {
		return nil, data.ErrAccountExists
	}
	now := time.Now()
	account := data.Account{
		ID:        bson.NewObjectID(),
		Email:     email,
		Password:  hashedPassword,
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	a.accounts[email] = account
	return &account, nil
}

func (a *Accounts) GetAccountByEmail(_ context.Context, email string) (*data.Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	account, ok := a.accounts[normalize.Email(email)]
	if !ok {
		return nil, data.ErrNotFound
	}
	return &account, nil
}

func (a *Accounts) DeleteAccount(_ context.Context, id bson.ObjectID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for email, account := range a.accounts {
		if account.ID == id {
			delete(a.accounts, email)
			return nil
		}
	}
	return data.ErrNotFound
}

func (a *Accounts) AccountExists(_ context.Context, email string) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.accounts[normalize.Email(email)]
	return ok, nil
}

// Media is the in-memory counterpart of data.MediaStore.
type Media struct {
	mu      sync.RWMutex
	baseURL string
	files   map[string][]byte
}

func NewMedia(baseURL string) *Media {
	return &Media{baseURL: baseURL, files: make(map[string][]byte)}
}

func (m *Media) Put(ctx context.Context, path string, b []byte) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", data.ErrBlobUpload)
	}
	m.mu.Lock()
	m.files[path] = bytes.Clone(b)
	m.mu.Unlock()
	return m.URL(ctx, path)
}

func (m *Media) URL(_ context.Context, path string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.files[path]; !ok {
		return "", fmt.Errorf("%w: %w", data.ErrBlobURL, data.ErrNotFound)
	}
	return data.MediaURL(m.baseURL, path), nil
}

func (m *Media) Open(_ context.Context, path string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.files[path]
	if !ok {
		return nil, data.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}
