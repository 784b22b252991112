package data

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ThreadsStore provides message thread database operations.
type ThreadsStore struct {
	// coll is reference to "threads" collection; _id is the conversation id
	coll *mongo.Collection
}

// NewThreadsStore returns a ThreadsStore using given collection.
func NewThreadsStore(coll *mongo.Collection) *ThreadsStore {
	return &ThreadsStore{coll: coll}
}

// Messages returns the stored message array for a conversation, oldest
// first (array order is insertion order).
func (t *ThreadsStore) Messages(ctx context.Context, conversationID string) ([]MessageRecord, error) {
	var thread Thread
	err := t.coll.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&thread)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return thread.Messages, nil
}

// SetMessages writes back the whole message array for a conversation.
func (t *ThreadsStore) SetMessages(ctx context.Context, conversationID string, msgs []MessageRecord) error {
	thread := Thread{
		ID:        conversationID,
		Messages:  msgs,
		UpdatedAt: time.Now(),
	}

	// Whole-document replace: concurrent writers race, last one wins
	_, err := t.coll.ReplaceOne(ctx,
		bson.M{"_id": conversationID},
		thread,
		options.Replace().SetUpsert(true),
	)
	return err
}
