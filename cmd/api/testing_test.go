package main

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/PaulBabatuyi/chatsync/internal/auth"
	"github.com/PaulBabatuyi/chatsync/internal/chat"
)

const testMediaBase = "http://ops.test"

type testEnv struct {
	stores    *backends
	hub       *ConnectionHub
	jwt       *auth.JWTManager
	directory *chat.Directory
	coord     *chat.Coordinator
	srv       *Server
	log       *log.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvOn(t, newMemoryBackends(testMediaBase))
}

func newTestEnvOn(t *testing.T, stores *backends) *testEnv {
	t.Helper()
	logger := log.New(io.Discard)
	e := &testEnv{
		stores: stores,
		hub:    NewConnectionHub(),
		jwt:    auth.NewJWTManager("test-secret", time.Hour),
		log:    logger,
	}
	e.directory = chat.NewDirectory(e.stores.profiles, e.stores.directory, logger)
	e.coord = chat.NewCoordinator(e.stores.profiles, e.stores.threads, e.stores.media,
		chat.WithLogger(logger),
		chat.WithListener(e.hub),
	)
	e.srv = newServer(e.stores.accounts, e.directory, e.coord, e.jwt, e.hub, logger)
	return e
}

// as returns a context carrying verified claims for email, as the auth
// interceptor would produce.
func (e *testEnv) as(t *testing.T, email, name string) context.Context {
	t.Helper()
	token, _, err := e.jwt.GenerateToken(bson.NewObjectID(), email, name)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := e.jwt.VerifyToken(token)
	if err != nil {
		t.Fatal(err)
	}
	return context.WithValue(context.Background(), authContextKey{}, claims)
}
