package chat

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/PaulBabatuyi/chatsync/internal/data"
	"github.com/PaulBabatuyi/chatsync/internal/data/memory"
)

var testNow = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

const testBaseURL = "http://media.test"

type fixture struct {
	profiles  *memory.Profiles
	list      *memory.Directory
	threads   *memory.Threads
	media     *memory.Media
	directory *Directory
	coord     *Coordinator
	events    *recorder
}

func quietLogger() *log.Logger {
	l := log.New(io.Discard)
	l.SetLevel(log.FatalLevel)
	return l
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		profiles: memory.NewProfiles(),
		list:     memory.NewDirectory(),
		threads:  memory.NewThreads(),
		media:    memory.NewMedia(testBaseURL),
		events:   &recorder{},
	}
	f.directory = NewDirectory(f.profiles, f.list, quietLogger())
	f.directory.now = func() time.Time { return testNow }
	f.coord = f.newCoordinator(f.threads, opts...)
	return f
}

func (f *fixture) newCoordinator(threads ThreadBackend, opts ...Option) *Coordinator {
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithLogger(quietLogger()),
		WithListener(f.events),
	}
	return NewCoordinator(f.profiles, threads, f.media, append(base, opts...)...)
}

func (f *fixture) register(t *testing.T, first, last, email string) *Session {
	t.Helper()
	require.NoError(t, f.directory.RegisterUser(context.Background(), User{FirstName: first, LastName: last, Email: email}))
	return NewSession(email, first+" "+last)
}

// converse registers a and b and opens a conversation from a to b with text.
func (f *fixture) converse(t *testing.T, text string) (a, b *Session, id string) {
	t.Helper()
	a = f.register(t, "Ann", "Lee", "a@x.com")
	b = f.register(t, "Ben", "Ray", "b@x.com")

	first, err := f.coord.NewMessage(a, b.Email, Text{Body: text})
	require.NoError(t, err)
	id, err = f.coord.CreateConversation(context.Background(), a, b.Email, "Ben Ray", first)
	require.NoError(t, err)
	f.events.reset()
	return a, b, id
}

func (f *fixture) conversations(t *testing.T, safeEmail string) []data.Conversation {
	t.Helper()
	convs, err := f.profiles.Conversations(context.Background(), safeEmail)
	require.NoError(t, err)
	return convs
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) ConversationChanged(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// failingThreads refuses every write.
type failingThreads struct {
	*memory.Threads
}

var errBackendDown = errors.New("backend down")

func (failingThreads) SetMessages(context.Context, string, []data.MessageRecord) error {
	return errBackendDown
}

// barrierThreads holds every reader after its fetch until `parties` readers
// have fetched, so their writes all start from the same snapshot.
type barrierThreads struct {
	*memory.Threads
	wg *sync.WaitGroup
}

func newBarrierThreads(inner *memory.Threads, parties int) *barrierThreads {
	wg := &sync.WaitGroup{}
	wg.Add(parties)
	return &barrierThreads{Threads: inner, wg: wg}
}

func (b *barrierThreads) Messages(ctx context.Context, id string) ([]data.MessageRecord, error) {
	msgs, err := b.Threads.Messages(ctx, id)
	b.wg.Done()
	b.wg.Wait()
	return msgs, err
}
