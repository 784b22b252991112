// Package db manages MongoDB connections and collections.
package db

import (
	"context" // For connection timeout/cancellation
	"fmt"     // Error formatting
	"time"    // Duration for timeouts

	"go.mongodb.org/mongo-driver/v2/bson"           // Index keys
	"go.mongodb.org/mongo-driver/v2/mongo"          // MongoDB driver
	"go.mongodb.org/mongo-driver/v2/mongo/options"  // MongoDB options
	"go.mongodb.org/mongo-driver/v2/mongo/readpref" // MongoDB read preference
)

// DefaultDatabase is used when no database name is configured.
const DefaultDatabase = "chatsync"

// Client wraps mongo.Client and exposes collections.
type Client struct {
	// client is the underlying MongoDB connection (thread-safe, can be reused)
	client *mongo.Client

	// db is the database holding accounts, profiles, directory, threads and media
	db *mongo.Database
}

// New connects to MongoDB and returns a Client.
func New(ctx context.Context, mongoURI, database string) (*Client, error) {
	// SetConnectTimeout: fail fast if MongoDB is unreachable
	opts := options.Client().
		ApplyURI(mongoURI).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// If ping doesn't complete in 5 seconds, fail
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	if database == "" {
		database = DefaultDatabase
	}

	return &Client{
		client: client,
		db:     client.Database(database),
	}, nil
}

// AccountsCollection returns the accounts collection (email/password identities).
func (c *Client) AccountsCollection() *mongo.Collection {
	return c.db.Collection("accounts")
}

// ProfilesCollection returns the profiles collection, keyed by safe email.
func (c *Client) ProfilesCollection() *mongo.Collection {
	return c.db.Collection("profiles")
}

// DirectoryCollection returns the collection holding the global users list.
func (c *Client) DirectoryCollection() *mongo.Collection {
	return c.db.Collection("directory")
}

// ThreadsCollection returns the threads collection, keyed by conversation id.
func (c *Client) ThreadsCollection() *mongo.Collection {
	return c.db.Collection("threads")
}

// MediaBucket returns the GridFS bucket used for uploaded pictures and videos.
func (c *Client) MediaBucket() *mongo.GridFSBucket {
	return c.db.GridFSBucket(options.GridFSBucket().SetName("media"))
}

// Ping checks that the primary is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// CreateIndexes creates the indexes the stores rely on.
func (c *Client) CreateIndexes(ctx context.Context) error {
	// ===== ACCOUNTS COLLECTION INDEX =====
	// Unique email: prevents duplicate registration
	accountsIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := c.AccountsCollection().Indexes().CreateOne(ctx, accountsIndex); err != nil {
		return fmt.Errorf("failed to create accounts index: %w", err)
	}

	// ===== PROFILES COLLECTION INDEX =====
	// Lookup of a summary by conversation id across profiles (admin tooling)
	profilesIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "conversations.id", Value: 1}},
	}
	if _, err := c.ProfilesCollection().Indexes().CreateOne(ctx, profilesIndex); err != nil {
		return fmt.Errorf("failed to create profiles index: %w", err)
	}

	// Directory and threads are addressed by _id only
	return nil
}
