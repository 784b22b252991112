package main

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PaulBabatuyi/chatsync/internal/auth"
	"github.com/PaulBabatuyi/chatsync/internal/chat"
	"github.com/PaulBabatuyi/chatsync/internal/data"
	"github.com/PaulBabatuyi/chatsync/internal/normalize"
	v1 "github.com/PaulBabatuyi/chatsync/rpc/chatsync/v1"
)

// statusFromError maps sync-layer errors onto gRPC codes.
func statusFromError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, chat.ErrNotAuthenticated):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, data.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, chat.ErrConflict), errors.Is(err, data.ErrAccountExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, chat.ErrInvalidMessage), errors.Is(err, chat.ErrInvalidUser):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, chat.ErrNotParticipant):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, chat.ErrSenderListExists):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// issueToken builds the response shared by Register and Login.
func (s *Server) issueToken(acc *data.Account) (*v1.AuthResponse, error) {
	name := acc.FirstName + " " + acc.LastName
	token, expiresAt, err := s.auth.GenerateToken(acc.ID, acc.Email, name)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to generate token: %v", err)
	}
	return &v1.AuthResponse{
		Token:     token,
		UserID:    acc.ID.Hex(),
		Email:     acc.Email,
		SafeEmail: normalize.SafeEmail(acc.Email),
		Name:      name,
		ExpiresAt: expiresAt,
	}, nil
}

// Register creates an account, writes the profile and directory entry, and
// returns a session token.
func (s *Server) Register(ctx context.Context, req *v1.RegisterRequest) (*v1.AuthResponse, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" ||
		strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, status.Errorf(codes.InvalidArgument, "email, password, first_name and last_name are required")
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to hash password: %v", err)
	}

	acc, err := s.accounts.CreateAccount(ctx, req.Email, hashed, req.FirstName, req.LastName)
	if err != nil {
		s.log.Warn("create account failed", "email", normalize.Email(req.Email), "err", err)
		return nil, statusFromError(err)
	}

	user := chat.User{FirstName: acc.FirstName, LastName: acc.LastName, Email: acc.Email}
	if err := s.directory.RegisterUser(ctx, user); err != nil {
		s.log.Error("register user failed", "email", acc.Email, "err", err)
		// drop the account so the registration can be retried
		if derr := s.accounts.DeleteAccount(context.WithoutCancel(ctx), acc.ID); derr != nil {
			s.log.Error("rollback account failed", "email", acc.Email, "err", derr)
		}
		return nil, statusFromError(err)
	}

	return s.issueToken(acc)
}

// Login checks the password and returns a session token.
func (s *Server) Login(ctx context.Context, req *v1.LoginRequest) (*v1.AuthResponse, error) {
	acc, err := s.accounts.GetAccountByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil, status.Errorf(codes.NotFound, "user not found")
		}
		return nil, statusFromError(err)
	}
	if err := auth.CheckPassword(acc.Password, req.Password); err != nil {
		return nil, status.Errorf(codes.PermissionDenied, "invalid credentials")
	}
	return s.issueToken(acc)
}

func (s *Server) UserExists(ctx context.Context, req *v1.UserExistsRequest) (*v1.UserExistsResponse, error) {
	ok, err := s.directory.UserExists(ctx, req.Email)
	if err != nil {
		return nil, statusFromError(err)
	}
	return &v1.UserExistsResponse{Exists: ok}, nil
}

func (s *Server) SearchUsers(ctx context.Context, req *v1.SearchUsersRequest) (*v1.SearchUsersResponse, error) {
	sess, err := sessionFromContext(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.directory.SearchUsers(ctx, sess, req.Term)
	if errors.Is(err, data.ErrNotFound) {
		return &v1.SearchUsersResponse{}, nil
	}
	if err != nil {
		return nil, statusFromError(err)
	}
	resp := &v1.SearchUsersResponse{Users: make([]v1.User, 0, len(entries))}
	for _, e := range entries {
		resp.Users = append(resp.Users, v1.User{Name: e.Name, Email: e.Email})
	}
	return resp, nil
}

// ListConversations returns the caller's summaries; no list yet is an
// empty response rather than NotFound.
func (s *Server) ListConversations(ctx context.Context, _ *v1.ListConversationsRequest) (*v1.ListConversationsResponse, error) {
	sess, err := sessionFromContext(ctx)
	if err != nil {
		return nil, err
	}
	convs, err := s.coord.Conversations(ctx, sess)
	if errors.Is(err, data.ErrNotFound) {
		return &v1.ListConversationsResponse{}, nil
	}
	if err != nil {
		return nil, statusFromError(err)
	}
	resp := &v1.ListConversationsResponse{Conversations: make([]v1.Conversation, 0, len(convs))}
	for _, c := range convs {
		resp.Conversations = append(resp.Conversations, toConversation(c))
	}
	return resp, nil
}

func (s *Server) CreateConversation(ctx context.Context, req *v1.CreateConversationRequest) (*v1.CreateConversationResponse, error) {
	sess, err := sessionFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if normalize.SafeEmail(req.OtherEmail) == "" {
		return nil, status.Errorf(codes.InvalidArgument, "other_email is required")
	}

	first, err := s.coord.NewMessage(sess, req.OtherEmail, chat.Text{Body: req.Text})
	if err != nil {
		return nil, statusFromError(err)
	}
	id, err := s.coord.CreateConversation(ctx, sess, req.OtherEmail, req.Name, first)
	if err != nil {
		s.log.Warn("create conversation failed", "from", sess.SafeEmail, "to", normalize.SafeEmail(req.OtherEmail), "err", err)
		return nil, statusFromError(err)
	}
	return &v1.CreateConversationResponse{ConversationID: id, Message: toMessage(first)}, nil
}

func (s *Server) SendMessage(ctx context.Context, req *v1.SendMessageRequest) (*v1.SendMessageResponse, error) {
	sess, err := sessionFromContext(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.coord.NewMessage(sess, req.OtherEmail, chat.Text{Body: req.Text})
	if err != nil {
		return nil, statusFromError(err)
	}
	if err := s.coord.SendMessage(ctx, sess, req.ConversationID, req.OtherEmail, req.Name, m); err != nil {
		return nil, statusFromError(err)
	}
	return &v1.SendMessageResponse{Message: toMessage(m)}, nil
}

func (s *Server) SendMedia(ctx context.Context, req *v1.SendMediaRequest) (*v1.SendMessageResponse, error) {
	sess, err := sessionFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if int64(len(req.Data)) > s.maxMediaBytes {
		return nil, status.Errorf(codes.InvalidArgument, "media larger than %d bytes", s.maxMediaBytes)
	}

	var m chat.Message
	switch data.MessageKind(req.Kind) {
	case data.KindPhoto:
		m, err = s.coord.SendPhoto(ctx, sess, req.ConversationID, req.OtherEmail, req.Name, req.Data)
	case data.KindVideo:
		m, err = s.coord.SendVideo(ctx, sess, req.ConversationID, req.OtherEmail, req.Name, req.Data)
	default:
		return nil, status.Errorf(codes.InvalidArgument, "kind must be photo or video, got %q", req.Kind)
	}
	if err != nil {
		return nil, statusFromError(err)
	}
	return &v1.SendMessageResponse{Message: toMessage(m)}, nil
}

func (s *Server) GetMessages(ctx context.Context, req *v1.GetMessagesRequest) (*v1.GetMessagesResponse, error) {
	sess, err := sessionFromContext(ctx)
	if err != nil {
		return nil, err
	}
	msgs, err := s.coord.Messages(ctx, sess, req.ConversationID)
	if err != nil {
		return nil, statusFromError(err)
	}
	resp := &v1.GetMessagesResponse{Messages: make([]v1.Message, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, toMessage(m))
	}
	return resp, nil
}

func (s *Server) DeleteConversation(ctx context.Context, req *v1.DeleteConversationRequest) (*v1.DeleteConversationResponse, error) {
	sess, err := sessionFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.coord.DeleteConversation(ctx, sess, req.ConversationID); err != nil {
		return nil, statusFromError(err)
	}
	return &v1.DeleteConversationResponse{}, nil
}

func (s *Server) UploadProfilePicture(ctx context.Context, req *v1.UploadProfilePictureRequest) (*v1.ProfilePictureResponse, error) {
	sess, err := sessionFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if int64(len(req.Data)) > s.maxMediaBytes {
		return nil, status.Errorf(codes.InvalidArgument, "picture larger than %d bytes", s.maxMediaBytes)
	}
	url, err := s.coord.UploadProfilePicture(ctx, sess, req.Data)
	if err != nil {
		return nil, statusFromError(err)
	}
	return &v1.ProfilePictureResponse{URL: url}, nil
}

func (s *Server) GetProfilePictureURL(ctx context.Context, req *v1.GetProfilePictureURLRequest) (*v1.ProfilePictureResponse, error) {
	sess, err := sessionFromContext(ctx)
	if err != nil {
		return nil, err
	}
	email := req.Email
	if email == "" {
		email = sess.Email
	}
	url, err := s.coord.ProfilePictureURL(ctx, sess, email)
	if err != nil {
		return nil, statusFromError(err)
	}
	return &v1.ProfilePictureResponse{URL: url}, nil
}

// Observe registers the stream in the hub and holds it open until the client
// goes away. Events arrive through the hub's ConversationChanged.
func (s *Server) Observe(_ *v1.ObserveRequest, stream v1.ChatSync_ObserveServer) error {
	sess, err := sessionFromContext(stream.Context())
	if err != nil {
		return err
	}
	if s.hub == nil {
		return status.Errorf(codes.Unavailable, "observe is disabled")
	}

	connID := s.hub.Register(sess.SafeEmail, &serialSender{next: stream})
	defer s.hub.Unregister(sess.SafeEmail, connID)
	s.log.Debug("observer connected", "user", sess.SafeEmail, "conn", connID)

	<-stream.Context().Done()
	return nil
}
