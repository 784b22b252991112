package main

import (
	"context"
	"fmt"

	"github.com/PaulBabatuyi/chatsync/internal/chat"
	"github.com/PaulBabatuyi/chatsync/internal/config"
	"github.com/PaulBabatuyi/chatsync/internal/data"
	"github.com/PaulBabatuyi/chatsync/internal/data/memory"
	"github.com/PaulBabatuyi/chatsync/internal/db"
)

// backends groups the stores the service runs on.
type backends struct {
	accounts  accountStore
	profiles  chat.ProfileBackend
	directory chat.DirectoryBackend
	threads   chat.ThreadBackend
	media     interface {
		chat.BlobStore
		mediaOpener
	}
	ping  func(context.Context) error
	close func(context.Context) error
}

func newMemoryBackends(mediaBaseURL string) *backends {
	return &backends{
		accounts:  memory.NewAccounts(),
		profiles:  memory.NewProfiles(),
		directory: memory.NewDirectory(),
		threads:   memory.NewThreads(),
		media:     memory.NewMedia(mediaBaseURL),
		ping:      func(context.Context) error { return nil },
		close:     func(context.Context) error { return nil },
	}
}

func newMongoBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	client, err := db.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return nil, err
	}
	if err := client.CreateIndexes(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return &backends{
		accounts:  data.NewAccountsStore(client.AccountsCollection()),
		profiles:  data.NewProfilesStore(client.ProfilesCollection()),
		directory: data.NewDirectoryStore(client.DirectoryCollection()),
		threads:   data.NewThreadsStore(client.ThreadsCollection()),
		media:     data.NewMediaStore(client.MediaBucket(), cfg.Media.BaseURL),
		ping:      client.Ping,
		close:     client.Close,
	}, nil
}

func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	if cfg.Store.Backend == config.BackendMemory {
		return newMemoryBackends(cfg.Media.BaseURL), nil
	}
	return newMongoBackends(ctx, cfg)
}
