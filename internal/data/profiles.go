package data

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ProfilesStore reads and writes per-user profile nodes, including the
// embedded conversation summary list.
type ProfilesStore struct {
	// coll is reference to "profiles" collection; _id is the safe email
	coll *mongo.Collection
}

// NewProfilesStore returns a ProfilesStore using the provided collection.
func NewProfilesStore(coll *mongo.Collection) *ProfilesStore {
	return &ProfilesStore{coll: coll}
}

// ProfileExists reports whether a registered profile exists for safeEmail.
// Nodes created only by a conversation write (no email field) don't count.
func (p *ProfilesStore) ProfileExists(ctx context.Context, safeEmail string) (bool, error) {
	count, err := p.coll.CountDocuments(ctx, bson.M{"_id": safeEmail, "email": bson.M{"$exists": true}})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Profile fetches the whole profile node.
func (p *ProfilesStore) Profile(ctx context.Context, safeEmail string) (*Profile, error) {
	var profile Profile
	err := p.coll.FindOne(ctx, bson.M{"_id": safeEmail}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// PutProfile overwrites the whole profile node, creating it if missing.
func (p *ProfilesStore) PutProfile(ctx context.Context, profile *Profile) error {
	// ReplaceOne with upsert is the "set whole value at path" primitive
	_, err := p.coll.ReplaceOne(ctx,
		bson.M{"_id": profile.SafeEmail},
		profile,
		options.Replace().SetUpsert(true),
	)
	return err
}

// Conversations returns the conversation list stored under safeEmail.
// ErrNotFound means the list has never been written (or was emptied).
func (p *ProfilesStore) Conversations(ctx context.Context, safeEmail string) ([]Conversation, error) {
	// Pointer so an absent field decodes to nil, distinct from an empty array
	var doc struct {
		Conversations *[]Conversation `bson:"conversations"`
	}

	opts := options.FindOne().SetProjection(bson.M{"conversations": 1})
	err := p.coll.FindOne(ctx, bson.M{"_id": safeEmail}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if doc.Conversations == nil {
		return nil, ErrNotFound
	}
	return *doc.Conversations, nil
}

// SetConversations writes the whole conversation list. Writing an empty
// list removes the field, the same way an empty array disappears from a
// hierarchical document tree.
func (p *ProfilesStore) SetConversations(ctx context.Context, safeEmail string, convs []Conversation) error {
	filter := bson.M{"_id": safeEmail}

	if len(convs) == 0 {
		_, err := p.coll.UpdateOne(ctx, filter, bson.M{"$unset": bson.M{"conversations": ""}})
		return err
	}

	// Upsert so a recipient without a profile node still gets the list
	_, err := p.coll.UpdateOne(ctx, filter,
		bson.M{"$set": bson.M{"conversations": convs}},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}
