package chatsyncv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "chatsync.v1.ChatSync"

// Full method names, as seen by interceptors.
const (
	ChatSync_Register_FullMethodName             = "/" + ServiceName + "/Register"
	ChatSync_Login_FullMethodName                = "/" + ServiceName + "/Login"
	ChatSync_UserExists_FullMethodName           = "/" + ServiceName + "/UserExists"
	ChatSync_SearchUsers_FullMethodName          = "/" + ServiceName + "/SearchUsers"
	ChatSync_ListConversations_FullMethodName    = "/" + ServiceName + "/ListConversations"
	ChatSync_CreateConversation_FullMethodName   = "/" + ServiceName + "/CreateConversation"
	ChatSync_SendMessage_FullMethodName          = "/" + ServiceName + "/SendMessage"
	ChatSync_SendMedia_FullMethodName            = "/" + ServiceName + "/SendMedia"
	ChatSync_GetMessages_FullMethodName          = "/" + ServiceName + "/GetMessages"
	ChatSync_DeleteConversation_FullMethodName   = "/" + ServiceName + "/DeleteConversation"
	ChatSync_UploadProfilePicture_FullMethodName = "/" + ServiceName + "/UploadProfilePicture"
	ChatSync_GetProfilePictureURL_FullMethodName = "/" + ServiceName + "/GetProfilePictureURL"
	ChatSync_Observe_FullMethodName              = "/" + ServiceName + "/Observe"
)

// ChatSyncServer is the server API of the ChatSync service.
type ChatSyncServer interface {
	Register(context.Context, *RegisterRequest) (*AuthResponse, error)
	Login(context.Context, *LoginRequest) (*AuthResponse, error)
	UserExists(context.Context, *UserExistsRequest) (*UserExistsResponse, error)
	SearchUsers(context.Context, *SearchUsersRequest) (*SearchUsersResponse, error)
	ListConversations(context.Context, *ListConversationsRequest) (*ListConversationsResponse, error)
	CreateConversation(context.Context, *CreateConversationRequest) (*CreateConversationResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	SendMedia(context.Context, *SendMediaRequest) (*SendMessageResponse, error)
	GetMessages(context.Context, *GetMessagesRequest) (*GetMessagesResponse, error)
	DeleteConversation(context.Context, *DeleteConversationRequest) (*DeleteConversationResponse, error)
	UploadProfilePicture(context.Context, *UploadProfilePictureRequest) (*ProfilePictureResponse, error)
	GetProfilePictureURL(context.Context, *GetProfilePictureURLRequest) (*ProfilePictureResponse, error)
	Observe(*ObserveRequest, ChatSync_ObserveServer) error
}

// ChatSync_ObserveServer is the server side of an Observe stream.
type ChatSync_ObserveServer interface {
	Send(*Event) error
	grpc.ServerStream
}

// UnimplementedChatSyncServer answers Unimplemented for every method; embed
// it to stay forward compatible.
type UnimplementedChatSyncServer struct{}

func (UnimplementedChatSyncServer) Register(context.Context, *RegisterRequest) (*AuthResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Register not implemented")
}
func (UnimplementedChatSyncServer) Login(context.Context, *LoginRequest) (*AuthResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Login not implemented")
}
func (UnimplementedChatSyncServer) UserExists(context.Context, *UserExistsRequest) (*UserExistsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UserExists not implemented")
}
func (UnimplementedChatSyncServer) SearchUsers(context.Context, *SearchUsersRequest) (*SearchUsersResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SearchUsers not implemented")
}
func (UnimplementedChatSyncServer) ListConversations(context.Context, *ListConversationsRequest) (*ListConversationsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListConversations not implemented")
}
func (UnimplementedChatSyncServer) CreateConversation(context.Context, *CreateConversationRequest) (*CreateConversationResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateConversation not implemented")
}
func (UnimplementedChatSyncServer) SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SendMessage not implemented")
}
func (UnimplementedChatSyncServer) SendMedia(context.Context, *SendMediaRequest) (*SendMessageResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SendMedia not implemented")
}
func (UnimplementedChatSyncServer) GetMessages(context.Context, *GetMessagesRequest) (*GetMessagesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetMessages not implemented")
}
func (UnimplementedChatSyncServer) DeleteConversation(context.Context, *DeleteConversationRequest) (*DeleteConversationResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteConversation not implemented")
}
func (UnimplementedChatSyncServer) UploadProfilePicture(context.Context, *UploadProfilePictureRequest) (*ProfilePictureResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UploadProfilePicture not implemented")
}
func (UnimplementedChatSyncServer) GetProfilePictureURL(context.Context, *GetProfilePictureURLRequest) (*ProfilePictureResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetProfilePictureURL not implemented")
}
func (UnimplementedChatSyncServer) Observe(*ObserveRequest, ChatSync_ObserveServer) error {
	return status.Error(codes.Unimplemented, "method Observe not implemented")
}

// RegisterChatSyncServer registers srv on s.
func RegisterChatSyncServer(s grpc.ServiceRegistrar, srv ChatSyncServer) {
	s.RegisterService(&ChatSync_ServiceDesc, srv)
}

// unary builds the method descriptor of one unary RPC.
func unary[Req, Resp any](name string, call func(ChatSyncServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ChatSyncServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ChatSyncServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func observeHandler(srv any, stream grpc.ServerStream) error {
	in := new(ObserveRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ChatSyncServer).Observe(in, &observeServer{stream})
}

type observeServer struct {
	grpc.ServerStream
}

func (x *observeServer) Send(ev *Event) error {
	return x.ServerStream.SendMsg(ev)
}

// ChatSync_ServiceDesc is the grpc.ServiceDesc of the ChatSync service.
var ChatSync_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatSyncServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", ChatSyncServer.Register),
		unary("Login", ChatSyncServer.Login),
		unary("UserExists", ChatSyncServer.UserExists),
		unary("SearchUsers", ChatSyncServer.SearchUsers),
		unary("ListConversations", ChatSyncServer.ListConversations),
		unary("CreateConversation", ChatSyncServer.CreateConversation),
		unary("SendMessage", ChatSyncServer.SendMessage),
		unary("SendMedia", ChatSyncServer.SendMedia),
		unary("GetMessages", ChatSyncServer.GetMessages),
		unary("DeleteConversation", ChatSyncServer.DeleteConversation),
		unary("UploadProfilePicture", ChatSyncServer.UploadProfilePicture),
		unary("GetProfilePictureURL", ChatSyncServer.GetProfilePictureURL),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Observe",
			Handler:       observeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "chatsync/v1",
}
