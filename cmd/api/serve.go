package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/PaulBabatuyi/chatsync/internal/auth"
	"github.com/PaulBabatuyi/chatsync/internal/chat"
	"github.com/PaulBabatuyi/chatsync/internal/config"
	"github.com/PaulBabatuyi/chatsync/internal/events"
	"github.com/PaulBabatuyi/chatsync/internal/middleware"
	"github.com/PaulBabatuyi/chatsync/internal/observability"
	"github.com/PaulBabatuyi/chatsync/internal/telemetry"
	v1 "github.com/PaulBabatuyi/chatsync/rpc/chatsync/v1"
)

// rateLimited lists the unauthenticated methods throttled per email or peer.
var rateLimited = map[string]bool{
	v1.ChatSync_Register_FullMethodName:   true,
	v1.ChatSync_Login_FullMethodName:      true,
	v1.ChatSync_UserExists_FullMethodName: true,
}

func newJWTManager(cfg *config.Config) *auth.JWTManager {
	if len(cfg.JWT.Keys) > 0 {
		return auth.NewJWTManagerFromKeys(cfg.JWT.Keys, cfg.JWT.ActiveKid, cfg.JWT.TTL)
	}
	return auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TTL)
}

func serverOptions(cfg *config.Config, jwtMgr *auth.JWTManager, limiter *middleware.LimiterStore) ([]grpc.ServerOption, error) {
	var opts []grpc.ServerOption

	if cfg.TLS.Cert != "" && cfg.TLS.Key != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLS.Cert, cfg.TLS.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS certs: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	}

	// metrics -> rate limiter -> auth
	opts = append(opts,
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			observability.GRPCServerMetricsUnaryInterceptor(),
			middleware.RateLimitUnaryInterceptor(limiter, rateLimited),
			authUnaryInterceptor(jwtMgr),
		),
		grpc.ChainStreamInterceptor(
			observability.GRPCServerMetricsStreamInterceptor(),
			authStreamInterceptor(jwtMgr),
		),
	)
	return opts, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := log.Default()
	logger.SetLevel(cfg.Log.Level)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTel.Endpoint, cfg.OTel.Insecure)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	stores, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = stores.close(context.Background()) }()
	logger.Info("storage ready", "backend", cfg.Store.Backend)

	publisher := events.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
	defer publisher.Close()

	hub := NewConnectionHub()
	jwtMgr := newJWTManager(cfg)

	directory := chat.NewDirectory(stores.profiles, stores.directory, logger)
	coord := chat.NewCoordinator(stores.profiles, stores.threads, stores.media,
		chat.WithLogger(logger),
		chat.WithListener(chat.Listeners{hub, publisher}),
		chat.WithLegacySenderUpdate(cfg.Sync.LegacySenderUpdate),
	)

	limiter := middleware.NewLimiterStore(cfg.RateLimit.RPM, cfg.RateLimit.Burst, time.Minute)
	defer limiter.Stop()

	opts, err := serverOptions(cfg, jwtMgr, limiter)
	if err != nil {
		return err
	}
	grpcServer := grpc.NewServer(opts...)
	srv := newServer(stores.accounts, directory, coord, jwtMgr, hub, logger)
	srv.maxMediaBytes = cfg.Media.MaxBytes
	registerService(grpcServer, srv)

	ops := &opsServer{
		media:   stores.media,
		auth:    jwtMgr,
		hub:     hub,
		limiter: limiter,
		ping:    stores.ping,
		log:     logger.WithPrefix("http"),
	}
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           ops.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC server listening", "addr", lis.Addr().String(), "events", events.Mode(publisher))
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		logger.Info("ops server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		logger.Info("shutting down")
	case err = <-errCh:
		logger.Error("server exited", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	// Observe streams only end when clients leave; do not wait forever.
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		grpcServer.Stop()
	}
	return err
}
