package chatsyncv1

import (
	"context"

	"google.golang.org/grpc"
)

// ChatSyncClient calls the ChatSync service over a connection. Every call
// uses the JSON codec.
type ChatSyncClient struct {
	cc grpc.ClientConnInterface
}

func NewChatSyncClient(cc grpc.ClientConnInterface) *ChatSyncClient {
	return &ChatSyncClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ChatSyncClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[AuthResponse](ctx, c.cc, ChatSync_Register_FullMethodName, in, opts)
}

func (c *ChatSyncClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[AuthResponse](ctx, c.cc, ChatSync_Login_FullMethodName, in, opts)
}

func (c *ChatSyncClient) UserExists(ctx context.Context, in *UserExistsRequest, opts ...grpc.CallOption) (*UserExistsResponse, error) {
	return invoke[UserExistsResponse](ctx, c.cc, ChatSync_UserExists_FullMethodName, in, opts)
}

func (c *ChatSyncClient) SearchUsers(ctx context.Context, in *SearchUsersRequest, opts ...grpc.CallOption) (*SearchUsersResponse, error) {
	return invoke[SearchUsersResponse](ctx, c.cc, ChatSync_SearchUsers_FullMethodName, in, opts)
}

func (c *ChatSyncClient) ListConversations(ctx context.Context, in *ListConversationsRequest, opts ...grpc.CallOption) (*ListConversationsResponse, error) {
	return invoke[ListConversationsResponse](ctx, c.cc, ChatSync_ListConversations_FullMethodName, in, opts)
}

func (c *ChatSyncClient) CreateConversation(ctx context.Context, in *CreateConversationRequest, opts ...grpc.CallOption) (*CreateConversationResponse, error) {
	return invoke[CreateConversationResponse](ctx, c.cc, ChatSync_CreateConversation_FullMethodName, in, opts)
}

func (c *ChatSyncClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	return invoke[SendMessageResponse](ctx, c.cc, ChatSync_SendMessage_FullMethodName, in, opts)
}

func (c *ChatSyncClient) SendMedia(ctx context.Context, in *SendMediaRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	return invoke[SendMessageResponse](ctx, c.cc, ChatSync_SendMedia_FullMethodName, in, opts)
}

func (c *ChatSyncClient) GetMessages(ctx context.Context, in *GetMessagesRequest, opts ...grpc.CallOption) (*GetMessagesResponse, error) {
	return invoke[GetMessagesResponse](ctx, c.cc, ChatSync_GetMessages_FullMethodName, in, opts)
}

func (c *ChatSyncClient) DeleteConversation(ctx context.Context, in *DeleteConversationRequest, opts ...grpc.CallOption) (*DeleteConversationResponse, error) {
	return invoke[DeleteConversationResponse](ctx, c.cc, ChatSync_DeleteConversation_FullMethodName, in, opts)
}

func (c *ChatSyncClient) UploadProfilePicture(ctx context.Context, in *UploadProfilePictureRequest, opts ...grpc.CallOption) (*ProfilePictureResponse, error) {
	return invoke[ProfilePictureResponse](ctx, c.cc, ChatSync_UploadProfilePicture_FullMethodName, in, opts)
}

func (c *ChatSyncClient) GetProfilePictureURL(ctx context.Context, in *GetProfilePictureURLRequest, opts ...grpc.CallOption) (*ProfilePictureResponse, error) {
	return invoke[ProfilePictureResponse](ctx, c.cc, ChatSync_GetProfilePictureURL_FullMethodName, in, opts)
}

// ObserveClient receives the events of one Observe stream.
type ObserveClient struct {
	grpc.ClientStream
}

func (x *ObserveClient) Recv() (*Event, error) {
	ev := new(Event)
	if err := x.ClientStream.RecvMsg(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Observe opens a stream of the caller's conversation changes.
func (c *ChatSyncClient) Observe(ctx context.Context, in *ObserveRequest, opts ...grpc.CallOption) (*ObserveClient, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &ChatSync_ServiceDesc.Streams[0], ChatSync_Observe_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &ObserveClient{ClientStream: stream}, nil
}
