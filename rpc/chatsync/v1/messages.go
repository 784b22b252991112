package chatsyncv1

import "time"

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (r *RegisterRequest) GetEmail() string {
	if r == nil {
		return ""
	}
	return r.Email
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) GetEmail() string {
	if r == nil {
		return ""
	}
	return r.Email
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	SafeEmail string    `json:"safe_email"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expires_at"`
}

type UserExistsRequest struct {
	Email string `json:"email"`
}

func (r *UserExistsRequest) GetEmail() string {
	if r == nil {
		return ""
	}
	return r.Email
}

type UserExistsResponse struct {
	Exists bool `json:"exists"`
}

type User struct {
	Name  string `json:"name"`
	Email string `json:"email"` // safe email
}

type SearchUsersRequest struct {
	Term string `json:"term"`
}

type SearchUsersResponse struct {
	Users []User `json:"users"`
}

type LatestMessage struct {
	Date    string `json:"date"`
	Message string `json:"message"`
	IsRead  bool   `json:"is_read"`
}

type Conversation struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	OtherUserEmail string        `json:"other_user_email"`
	LatestMessage  LatestMessage `json:"latest_message"`
}

type Message struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"` // text, photo or video
	Content     string `json:"content"`
	Date        string `json:"date"`
	SenderEmail string `json:"sender_email"`
	SenderName  string `json:"sender_name"`
	IsRead      bool   `json:"is_read"`
}

type ListConversationsRequest struct{}

type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
}

type CreateConversationRequest struct {
	OtherEmail string `json:"other_email"`
	Name       string `json:"name"` // how the caller sees the other user
	Text       string `json:"text"`
}

type CreateConversationResponse struct {
	ConversationID string  `json:"conversation_id"`
	Message        Message `json:"message"`
}

type SendMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	OtherEmail     string `json:"other_email"`
	Name           string `json:"name"`
	Text           string `json:"text"`
}

type SendMessageResponse struct {
	Message Message `json:"message"`
}

type SendMediaRequest struct {
	ConversationID string `json:"conversation_id"`
	OtherEmail     string `json:"other_email"`
	Name           string `json:"name"`
	Kind           string `json:"kind"` // photo or video
	Data           []byte `json:"data"`
}

type GetMessagesRequest struct {
	ConversationID string `json:"conversation_id"`
}

type GetMessagesResponse struct {
	Messages []Message `json:"messages"`
}

type DeleteConversationRequest struct {
	ConversationID string `json:"conversation_id"`
}

type DeleteConversationResponse struct{}

type UploadProfilePictureRequest struct {
	Data []byte `json:"data"`
}

type GetProfilePictureURLRequest struct {
	Email string `json:"email"`
}

type ProfilePictureResponse struct {
	URL string `json:"url"`
}

type ObserveRequest struct{}

// Event is pushed on Observe streams and websocket connections.
type Event struct {
	Type           string        `json:"type"`
	ConversationID string        `json:"conversation_id"`
	Conversation   *Conversation `json:"conversation,omitempty"`
	Message        *Message      `json:"message,omitempty"`
	OccurredAt     time.Time     `json:"occurred_at"`
}
