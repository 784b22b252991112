package main

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PaulBabatuyi/chatsync/internal/chat"
	"github.com/PaulBabatuyi/chatsync/internal/data"
	v1 "github.com/PaulBabatuyi/chatsync/rpc/chatsync/v1"
)

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{fmt.Errorf("x: %w", data.ErrNotFound), codes.NotFound},
		{fmt.Errorf("x: %w: %w", chat.ErrWriteFailed, errors.New("io")), codes.Internal},
		{chat.ErrNotAuthenticated, codes.Unauthenticated},
		{fmt.Errorf("x: %w", chat.ErrConflict), codes.AlreadyExists},
		{data.ErrAccountExists, codes.AlreadyExists},
		{fmt.Errorf("%w: empty", chat.ErrInvalidMessage), codes.InvalidArgument},
		{chat.ErrInvalidUser, codes.InvalidArgument},
		{fmt.Errorf("x: %w", chat.ErrSenderListExists), codes.FailedPrecondition},
		{fmt.Errorf("conversation c: %w", chat.ErrNotParticipant), codes.PermissionDenied},
		{fmt.Errorf("%w: %w", data.ErrBlobURL, data.ErrNotFound), codes.NotFound},
		{data.ErrBlobUpload, codes.Internal},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(statusFromError(tt.err)), tt.err.Error())
	}
	assert.NoError(t, statusFromError(nil))
}

func TestRegisterAndLoginHandlers(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	reg, err := e.srv.Register(ctx, &v1.RegisterRequest{Email: "Ann@X.com", Password: "pw", FirstName: "Ann", LastName: "Lee"})
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "ann@x.com", reg.Email)
	assert.Equal(t, "ann-x-com", reg.SafeEmail)
	assert.Equal(t, "Ann Lee", reg.Name)

	claims, err := e.jwt.VerifyToken(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", claims.Name)

	exists, err := e.srv.UserExists(ctx, &v1.UserExistsRequest{Email: "ann@x.com"})
	require.NoError(t, err)
	assert.True(t, exists.Exists)

	_, err = e.srv.Register(ctx, &v1.RegisterRequest{Email: "ann@x.com", Password: "pw", FirstName: "Ann", LastName: "Lee"})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	_, err = e.srv.Register(ctx, &v1.RegisterRequest{Email: "b@x.com", Password: "pw"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	login, err := e.srv.Login(ctx, &v1.LoginRequest{Email: "ann@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, login.UserID)

	_, err = e.srv.Login(ctx, &v1.LoginRequest{Email: "ann@x.com", Password: "nope"})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = e.srv.Login(ctx, &v1.LoginRequest{Email: "who@x.com", Password: "pw"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestHandlersRequireClaims(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.srv.ListConversations(context.Background(), &v1.ListConversationsRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	_, err = e.srv.SendMessage(context.Background(), &v1.SendMessageRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestListConversationsEmpty(t *testing.T) {
	e := newTestEnv(t)
	resp, err := e.srv.ListConversations(e.as(t, "a@x.com", "Ann Lee"), &v1.ListConversationsRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Conversations)

	search, err := e.srv.SearchUsers(e.as(t, "a@x.com", "Ann Lee"), &v1.SearchUsersRequest{Term: "a"})
	require.NoError(t, err)
	assert.Empty(t, search.Users, "empty directory searches to nothing")
}

func TestConversationHandlers(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	for _, r := range []*v1.RegisterRequest{
		{Email: "a@x.com", Password: "pw", FirstName: "Ann", LastName: "Lee"},
		{Email: "b@x.com", Password: "pw", FirstName: "Ben", LastName: "Ray"},
	} {
		_, err := e.srv.Register(ctx, r)
		require.NoError(t, err)
	}
	alice := e.as(t, "a@x.com", "Ann Lee")
	bob := e.as(t, "b@x.com", "Ben Ray")

	created, err := e.srv.CreateConversation(alice, &v1.CreateConversationRequest{OtherEmail: "b@x.com", Name: "Ben Ray", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "a-x-com", created.Message.SenderEmail)
	assert.Equal(t, "text", created.Message.Kind)

	_, err = e.srv.SendMessage(bob, &v1.SendMessageRequest{ConversationID: created.ConversationID, OtherEmail: "a@x.com", Name: "Ann Lee", Text: "hey"})
	require.NoError(t, err)

	msgs, err := e.srv.GetMessages(alice, &v1.GetMessagesRequest{ConversationID: created.ConversationID})
	require.NoError(t, err)
	require.Len(t, msgs.Messages, 2)
	assert.Equal(t, "hey", msgs.Messages[1].Content)

	list, err := e.srv.ListConversations(bob, &v1.ListConversationsRequest{})
	require.NoError(t, err)
	require.Len(t, list.Conversations, 1)
	assert.Equal(t, "Ann Lee", list.Conversations[0].Name)
	assert.Equal(t, "hey", list.Conversations[0].LatestMessage.Message)

	_, err = e.srv.SendMessage(alice, &v1.SendMessageRequest{ConversationID: "conversation_nope", OtherEmail: "b@x.com", Text: "x"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = e.srv.SendMessage(alice, &v1.SendMessageRequest{ConversationID: created.ConversationID, OtherEmail: "b@x.com", Text: ""})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = e.srv.DeleteConversation(alice, &v1.DeleteConversationRequest{ConversationID: created.ConversationID})
	require.NoError(t, err)
	_, err = e.srv.DeleteConversation(alice, &v1.DeleteConversationRequest{ConversationID: created.ConversationID})
	assert.Equal(t, codes.NotFound, status.Code(err))

	list, err = e.srv.ListConversations(bob, &v1.ListConversationsRequest{})
	require.NoError(t, err)
	assert.Len(t, list.Conversations, 1, "delete is one-sided")
}

func TestMediaHandlers(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_, err := e.srv.Register(ctx, &v1.RegisterRequest{Email: "a@x.com", Password: "pw", FirstName: "Ann", LastName: "Lee"})
	require.NoError(t, err)
	alice := e.as(t, "a@x.com", "Ann Lee")

	created, err := e.srv.CreateConversation(alice, &v1.CreateConversationRequest{OtherEmail: "b@x.com", Name: "Ben", Text: "hi"})
	require.NoError(t, err)

	_, err = e.srv.SendMedia(alice, &v1.SendMediaRequest{ConversationID: created.ConversationID, OtherEmail: "b@x.com", Kind: "sticker", Data: []byte("x")})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	e.srv.maxMediaBytes = 4
	_, err = e.srv.SendMedia(alice, &v1.SendMediaRequest{ConversationID: created.ConversationID, OtherEmail: "b@x.com", Kind: "photo", Data: []byte("too big")})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	e.srv.maxMediaBytes = 1 << 20

	sent, err := e.srv.SendMedia(alice, &v1.SendMediaRequest{ConversationID: created.ConversationID, OtherEmail: "b@x.com", Name: "Ben", Kind: "video", Data: []byte("mov")})
	require.NoError(t, err)
	assert.Equal(t, "video", sent.Message.Kind)
	assert.Contains(t, sent.Message.Content, testMediaBase+"/media/message_videos/video_message_")

	_, err = e.srv.GetProfilePictureURL(alice, &v1.GetProfilePictureURLRequest{})
	assert.Equal(t, codes.NotFound, status.Code(err))

	up, err := e.srv.UploadProfilePicture(alice, &v1.UploadProfilePictureRequest{Data: []byte("png")})
	require.NoError(t, err)
	assert.Equal(t, testMediaBase+"/media/images/a-x-com_profile_picture.png", up.URL)

	got, err := e.srv.GetProfilePictureURL(alice, &v1.GetProfilePictureURLRequest{Email: "A@x.com"})
	require.NoError(t, err)
	assert.Equal(t, up.URL, got.URL)
}

func TestObserveWithoutHub(t *testing.T) {
	e := newTestEnv(t)
	e.srv.hub = nil
	err := e.srv.Observe(&v1.ObserveRequest{}, &observeStub{ctx: e.as(t, "a@x.com", "A")})
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer   abc "))
	assert.Equal(t, "abc", bearerToken("abc"))
	assert.Equal(t, "", bearerToken("Bearer "))
}

type observeStub struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *observeStub) Context() context.Context { return s.ctx }
func (s *observeStub) Send(*v1.Event) error     { return nil }

func TestObserveRegistersUntilDone(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := context.WithCancel(e.as(t, "a@x.com", "Ann Lee"))
	done := make(chan error, 1)
	go func() { done <- e.srv.Observe(&v1.ObserveRequest{}, &observeStub{ctx: ctx}) }()

	require.Eventually(t, func() bool { return e.hub.Connected("a-x-com") > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Zero(t, e.hub.Connected("a-x-com"))
}

// flakyDirectory fails SetDirectory while down is set.
type flakyDirectory struct {
	chat.DirectoryBackend
	down bool
}

func (f *flakyDirectory) SetDirectory(ctx context.Context, entries []data.DirectoryEntry) error {
	if f.down {
		return errors.New("transient")
	}
	return f.DirectoryBackend.SetDirectory(ctx, entries)
}

func TestRegisterRollsBackAccountOnDirectoryFailure(t *testing.T) {
	stores := newMemoryBackends(testMediaBase)
	dir := &flakyDirectory{DirectoryBackend: stores.directory, down: true}
	stores.directory = dir
	e := newTestEnvOn(t, stores)
	ctx := context.Background()
	req := &v1.RegisterRequest{Email: "ann@x.com", Password: "pw", FirstName: "Ann", LastName: "Lee"}

	_, err := e.srv.Register(ctx, req)
	assert.Equal(t, codes.Internal, status.Code(err))

	_, err = e.srv.Login(ctx, &v1.LoginRequest{Email: "ann@x.com", Password: "pw"})
	assert.Equal(t, codes.NotFound, status.Code(err), "account is removed with the failed registration")

	dir.down = false
	_, err = e.srv.Register(ctx, req)
	require.NoError(t, err)

	users, err := e.directory.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []data.DirectoryEntry{{Name: "Ann Lee", Email: "ann-x-com"}}, users)

	_, err = e.srv.Login(ctx, &v1.LoginRequest{Email: "ann@x.com", Password: "pw"})
	require.NoError(t, err)
}

func TestOutsiderIsDenied(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	for _, r := range []*v1.RegisterRequest{
		{Email: "a@x.com", Password: "pw", FirstName: "Ann", LastName: "Lee"},
		{Email: "b@x.com", Password: "pw", FirstName: "Ben", LastName: "Ray"},
		{Email: "eve@x.com", Password: "pw", FirstName: "Eve", LastName: "Moe"},
	} {
		_, err := e.srv.Register(ctx, r)
		require.NoError(t, err)
	}
	created, err := e.srv.CreateConversation(e.as(t, "a@x.com", "Ann Lee"), &v1.CreateConversationRequest{OtherEmail: "b@x.com", Name: "Ben Ray", Text: "secret"})
	require.NoError(t, err)

	eve := e.as(t, "eve@x.com", "Eve Moe")
	_, err = e.srv.GetMessages(eve, &v1.GetMessagesRequest{ConversationID: created.ConversationID})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = e.srv.SendMessage(eve, &v1.SendMessageRequest{ConversationID: created.ConversationID, OtherEmail: "b@x.com", Name: "Ben Ray", Text: "injected"})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = e.srv.SendMedia(eve, &v1.SendMediaRequest{ConversationID: created.ConversationID, OtherEmail: "b@x.com", Kind: "photo", Data: []byte("png")})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	msgs, err := e.srv.GetMessages(e.as(t, "b@x.com", "Ben Ray"), &v1.GetMessagesRequest{ConversationID: created.ConversationID})
	require.NoError(t, err)
	require.Len(t, msgs.Messages, 1)
	assert.Equal(t, "secret", msgs.Messages[0].Content)
}
