// Package data provides DB models and stores.
package data

import (
	"context" // Used for cancellation and timeouts
	"errors"  // Error handling
	"time"    // Timestamps

	"github.com/PaulBabatuyi/chatsync/internal/normalize"

	"go.mongodb.org/mongo-driver/v2/bson"  // MongoDB document queries
	"go.mongodb.org/mongo-driver/v2/mongo" // MongoDB driver
)

// AccountsStore performs account DB operations.
type AccountsStore struct {
	// coll is reference to "accounts" collection in MongoDB
	coll *mongo.Collection
}

// NewAccountsStore returns an AccountsStore using the provided collection.
func NewAccountsStore(coll *mongo.Collection) *AccountsStore {
	return &AccountsStore{coll: coll}
}

// CreateAccount inserts a new account document with hashed password.
func (a *AccountsStore) CreateAccount(ctx context.Context, email, hashedPassword, firstName, lastName string) (*Account, error) {
	now := time.Now()
	account := &Account{
		Email:     normalize.Email(email), // Stored normalized so lookups ignore casing
		Password:  hashedPassword,         // Already hashed by auth.HashPassword()
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: now,
		UpdatedAt: now,
	}

	result, err := a.coll.InsertOne(ctx, account)
	if err != nil {
		// Unique index on email rejects a second registration
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrAccountExists
		}
		return nil, err
	}

	// MongoDB auto-generates the _id field; it ends up in the JWT subject
	account.ID = result.InsertedID.(bson.ObjectID)
	return account, nil
}

// GetAccountByEmail finds an account by email.
func (a *AccountsStore) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	var account Account

	err := a.coll.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &account, nil
}

// AccountExists checks if an account exists by email.
func (a *AccountsStore) AccountExists(ctx context.Context, email string) (bool, error) {
	// CountDocuments is enough when only existence matters
	count, err := a.coll.CountDocuments(ctx, bson.M{"email": normalize.Email(email)})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteAccount removes the account with the given id. A missing account is
// ErrNotFound.
func (a *AccountsStore) DeleteAccount(ctx context.Context, id bson.ObjectID) error {
	res, err := a.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
