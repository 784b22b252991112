package chat

import (
	"context"
	"fmt"

	"github.com/PaulBabatuyi/chatsync/internal/normalize"
)

// Blob path prefixes.
const (
	profilePicturesDir = "images/"
	messageImagesDir   = "message_images/"
	messageVideosDir   = "message_videos/"
)

// SendPhoto uploads a picture and sends it into an existing conversation.
func (c *Coordinator) SendPhoto(ctx context.Context, s *Session, conversationID, otherEmail, name string, img []byte) (Message, error) {
	return c.sendMedia(ctx, s, conversationID, otherEmail, name, img, "photo_message_", ".png", messageImagesDir,
		func(url string) Body { return Photo{URL: url} })
}

// SendVideo uploads a clip and sends it into an existing conversation.
func (c *Coordinator) SendVideo(ctx context.Context, s *Session, conversationID, otherEmail, name string, clip []byte) (Message, error) {
	return c.sendMedia(ctx, s, conversationID, otherEmail, name, clip, "video_message_", ".mov", messageVideosDir,
		func(url string) Body { return Video{URL: url} })
}

func (c *Coordinator) sendMedia(ctx context.Context, s *Session, conversationID, otherEmail, name string, b []byte,
	prefix, ext, dir string, body func(url string) Body) (m Message, err error) {
	ctx, done := c.begin(ctx, "send_media", s)
	defer done(&err)

	if !s.valid() {
		return Message{}, ErrNotAuthenticated
	}
	if len(b) == 0 {
		return Message{}, fmt.Errorf("%w: empty media", ErrInvalidMessage)
	}
	// nothing is uploaded for a conversation the caller cannot send to
	if err := c.authorize(ctx, s, conversationID, otherEmail); err != nil {
		return Message{}, err
	}

	id, date := c.ids.Next(otherEmail, s.SafeEmail)
	path := dir + mediaFileName(prefix, id, ext)

	url, err := c.blobs.Put(ctx, path, b)
	if err != nil {
		return Message{}, fmt.Errorf("upload %s: %w", path, err)
	}

	m = Message{
		ID:          id,
		SenderEmail: s.SafeEmail,
		SenderName:  s.Name,
		Date:        date,
		Body:        body(url),
	}
	if err := c.sendMessage(ctx, s, conversationID, otherEmail, name, m); err != nil {
		c.log.Warn("media uploaded but not sent", "path", path, "conversation", conversationID, "err", err)
		return Message{}, err
	}
	return m, nil
}

// UploadProfilePicture stores the caller's picture and returns its URL.
func (c *Coordinator) UploadProfilePicture(ctx context.Context, s *Session, img []byte) (string, error) {
	if !s.valid() {
		return "", ErrNotAuthenticated
	}
	if len(img) == 0 {
		return "", fmt.Errorf("%w: empty picture", ErrInvalidUser)
	}
	path := profilePicturesDir + normalize.ProfilePictureFileName(s.Email)
	url, err := c.blobs.Put(ctx, path, img)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	c.log.Debug("profile picture uploaded", "user", s.SafeEmail)
	return url, nil
}

// ProfilePictureURL resolves the download URL of email's picture.
func (c *Coordinator) ProfilePictureURL(ctx context.Context, s *Session, email string) (string, error) {
	if !s.valid() {
		return "", ErrNotAuthenticated
	}
	path := profilePicturesDir + normalize.ProfilePictureFileName(email)
	url, err := c.blobs.URL(ctx, path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return url, nil
}
