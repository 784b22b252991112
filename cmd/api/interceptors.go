package main

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/PaulBabatuyi/chatsync/internal/auth"
	"github.com/PaulBabatuyi/chatsync/internal/chat"
	v1 "github.com/PaulBabatuyi/chatsync/rpc/chatsync/v1"
)

// context key type for storing auth claims in context
type authContextKey struct{}

// unauthenticated lists the methods callable without a token.
var unauthenticated = map[string]bool{
	v1.ChatSync_Register_FullMethodName:   true,
	v1.ChatSync_Login_FullMethodName:      true,
	v1.ChatSync_UserExists_FullMethodName: true,
}

// getClaimsFromContext extracts auth claims from the context, if present.
func getClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(authContextKey{}).(*auth.Claims)
	return c, ok && c != nil
}

// sessionFromContext turns the verified claims into a chat session.
func sessionFromContext(ctx context.Context) (*chat.Session, error) {
	claims, ok := getClaimsFromContext(ctx)
	if !ok {
		return nil, status.Errorf(codes.Unauthenticated, "missing auth claims")
	}
	return chat.NewSession(claims.Email, claims.Name), nil
}

// bearerToken strips the scheme from an authorization header value.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= 6 && strings.EqualFold(header[:6], "bearer") {
		header = header[6:]
	}
	return strings.TrimSpace(header)
}

// authenticate verifies the bearer token in ctx metadata and returns a
// context carrying its claims.
func authenticate(ctx context.Context, j *auth.JWTManager) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Errorf(codes.Unauthenticated, "missing metadata")
	}
	authHeaders := md.Get("authorization")
	if len(authHeaders) == 0 {
		return nil, status.Errorf(codes.Unauthenticated, "missing authorization header")
	}

	token := bearerToken(authHeaders[0])
	if token == "" {
		return nil, status.Errorf(codes.Unauthenticated, "invalid token")
	}

	claims, err := j.VerifyToken(token)
	if err != nil {
		return nil, status.Errorf(codes.Unauthenticated, "unauthenticated: %v", err)
	}
	return context.WithValue(ctx, authContextKey{}, claims), nil
}

// authUnaryInterceptor enforces JWT authentication for every method except
// the unauthenticated list.
func authUnaryInterceptor(j *auth.JWTManager) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if unauthenticated[info.FullMethod] {
			return handler(ctx, req)
		}
		ctx, err := authenticate(ctx, j)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// authStreamInterceptor is the stream equivalent of authUnaryInterceptor.
func authStreamInterceptor(j *auth.JWTManager) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if unauthenticated[info.FullMethod] {
			return handler(srv, ss)
		}
		ctx, err := authenticate(ss.Context(), j)
		if err != nil {
			return err
		}
		return handler(srv, wrappedStream{ServerStream: ss, ctx: ctx})
	}
}

// wrappedStream overrides Context() so handlers see the claims.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w wrappedStream) Context() context.Context { return w.ctx }
