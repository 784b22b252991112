package data

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MessageKind is the wire tag stored in MessageRecord.Type.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindPhoto MessageKind = "photo"
	KindVideo MessageKind = "video"
)

// Account maps to the accounts collection (email/password identity).
type Account struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Email     string        `bson:"email"`
	Password  string        `bson:"password"`
	FirstName string        `bson:"first_name"`
	LastName  string        `bson:"last_name"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

// Profile is the per-user node keyed by safe email. A nil Conversations
// slice means the user has no conversation list yet.
type Profile struct {
	SafeEmail     string         `bson:"_id" json:"safe_email"`
	Email         string         `bson:"email" json:"email"`
	FirstName     string         `bson:"first_name" json:"first_name"`
	LastName      string         `bson:"last_name" json:"last_name"`
	Conversations []Conversation `bson:"conversations,omitempty" json:"conversations,omitempty"`
	CreatedAt     time.Time      `bson:"created_at" json:"created_at"`
}

// DisplayName joins first and last name the way directory entries store it.
func (p *Profile) DisplayName() string {
	return p.FirstName + " " + p.LastName
}

// DirectoryEntry is one element of the global users list.
type DirectoryEntry struct {
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
}

// LatestMessage is the summary of the newest message in a conversation.
type LatestMessage struct {
	Date    string `bson:"date" json:"date"`
	Message string `bson:"message" json:"message"`
	IsRead  bool   `bson:"is_read" json:"is_read"`
}

// Conversation is the summary record duplicated under both participants.
type Conversation struct {
	ID             string        `bson:"id" json:"id"`
	Name           string        `bson:"name" json:"name"`
	OtherUserEmail string        `bson:"other_user_email" json:"other_user_email"`
	LatestMessage  LatestMessage `bson:"latest_message" json:"latest_message"`
}

// MessageRecord is a message as stored in a thread's messages array.
type MessageRecord struct {
	ID          string `bson:"id" json:"id"`
	Type        string `bson:"type" json:"type"`
	Content     string `bson:"content" json:"content"`
	Date        string `bson:"date" json:"date"`
	SenderEmail string `bson:"sender_email" json:"sender_email"`
	IsRead      bool   `bson:"is_read" json:"is_read"`
	Name        string `bson:"name" json:"name"`
}

// Thread maps to the threads collection: one document per conversation.
type Thread struct {
	ID        string          `bson:"_id"`
	Messages  []MessageRecord `bson:"messages"`
	UpdatedAt time.Time       `bson:"updated_at"`
}

// directoryDoc is the single document holding the global users list.
type directoryDoc struct {
	ID      string           `bson:"_id"`
	Entries []DirectoryEntry `bson:"entries"`
}

// directoryID is the key of the users list document.
const directoryID = "users"
