// Command api runs the chatsync service: the ChatSync gRPC API and the ops
// HTTP server (health, metrics, media, websocket observe).
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PaulBabatuyi/chatsync/internal/config"
	"github.com/PaulBabatuyi/chatsync/internal/db"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()

	root := &cobra.Command{
		Use:           "chatsync",
		Short:         "Conversation sync service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			used, err := config.ReadFile(v)
			if err != nil {
				return fmt.Errorf("read config: %w", err)
			}
			if used != "" {
				log.Info("using config file", "path", used)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("store.backend", config.BackendMongo, "Storage backend: mongo or memory")
	flags.String("mongodb.uri", "", "MongoDB connection URI")
	flags.String("mongodb.database", db.DefaultDatabase, "MongoDB database name")
	flags.String("grpc.port", "50051", "gRPC listen port")
	flags.String("http.port", "8080", "Ops HTTP listen port")
	flags.String("log.level", "info", "Log level: debug, info, warn, error")
	flags.Bool("sync.legacy_sender_update", false, "Fail sends when the sender already has a conversation list")
	bindFlags(v, root)

	root.AddCommand(newServeCmd(v), newIndexesCmd(v))
	return root
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for _, name := range []string{
		"store.backend", "mongodb.uri", "mongodb.database", "grpc.port", "http.port", "log.level", "sync.legacy_sender_update",
	} {
		_ = v.BindPFlag(name, cmd.PersistentFlags().Lookup(name))
	}
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC API and the ops HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func newIndexesCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create the MongoDB indexes and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			uri := v.GetString("mongodb.uri")
			if uri == "" {
				return fmt.Errorf("mongodb.uri must be set")
			}
			ctx := cmd.Context()
			client, err := db.New(ctx, uri, v.GetString("mongodb.database"))
			if err != nil {
				return err
			}
			defer func() { _ = client.Close(ctx) }()

			if err := client.CreateIndexes(ctx); err != nil {
				return err
			}
			log.Info("indexes created", "database", v.GetString("mongodb.database"))
			return nil
		},
	}
}
