package data

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DirectoryStore holds the global users list used for search.
type DirectoryStore struct {
	// coll is reference to "directory" collection; only one document is used
	coll *mongo.Collection
}

// NewDirectoryStore returns a DirectoryStore using the provided collection.
func NewDirectoryStore(coll *mongo.Collection) *DirectoryStore {
	return &DirectoryStore{coll: coll}
}

// Directory returns every entry in insertion order. ErrNotFound means the
// list was never initialized.
func (d *DirectoryStore) Directory(ctx context.Context) ([]DirectoryEntry, error) {
	var doc directoryDoc
	err := d.coll.FindOne(ctx, bson.M{"_id": directoryID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.Entries, nil
}

// SetDirectory overwrites the whole users list.
func (d *DirectoryStore) SetDirectory(ctx context.Context, entries []DirectoryEntry) error {
	_, err := d.coll.ReplaceOne(ctx,
		bson.M{"_id": directoryID},
		directoryDoc{ID: directoryID, Entries: entries},
		options.Replace().SetUpsert(true),
	)
	return err
}
