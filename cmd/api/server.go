package main

import (
	"context"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"google.golang.org/grpc"

	"github.com/PaulBabatuyi/chatsync/internal/auth"
	"github.com/PaulBabatuyi/chatsync/internal/chat"
	"github.com/PaulBabatuyi/chatsync/internal/data"
	v1 "github.com/PaulBabatuyi/chatsync/rpc/chatsync/v1"
)

// accountStore is the subset of the accounts stores used by Register/Login.
type accountStore interface {
	CreateAccount(ctx context.Context, email, hashedPassword, firstName, lastName string) (*data.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*data.Account, error)
	DeleteAccount(ctx context.Context, id bson.ObjectID) error
}

// Server implements the ChatSync service on top of the sync layer.
type Server struct {
	v1.UnimplementedChatSyncServer

	accounts  accountStore
	directory *chat.Directory
	coord     *chat.Coordinator
	auth      *auth.JWTManager
	hub       *ConnectionHub
	log       *log.Logger

	maxMediaBytes int64
}

// newServer returns a ready-to-use Server. hub may be nil, in which case
// Observe is unavailable.
func newServer(accounts accountStore, directory *chat.Directory, coord *chat.Coordinator, authMgr *auth.JWTManager, hub *ConnectionHub, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		accounts:      accounts,
		directory:     directory,
		coord:         coord,
		auth:          authMgr,
		hub:           hub,
		log:           logger.WithPrefix("grpc"),
		maxMediaBytes: 16 << 20,
	}
}

// registerService registers the ChatSync service on the given gRPC server.
func registerService(s *grpc.Server, srv *Server) {
	v1.RegisterChatSyncServer(s, srv)
}
