package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gss-opera-matcher/internal/config"
	"github.com/gss-opera-matcher/internal/db"
	"github.com/gss-opera-matcher/internal/debug"
	"github.com/gss-opera-matcher/internal/embeddings"
	"github.com/gss-opera-matcher/internal/web"
	"github.com/gss-opera-matcher/internal/web/handlers"
)

// createServeCmd creates the serve subcommand
func createServeCmd() *cobra.Command {
	var (
		host string
		port int
		noDB bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serve the matching API. Runs can be persisted to Postgres when a database
is reachable and persistence is enabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := debug.Logger()

			cfg := web.ConfigFromEnv()
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if noDB {
				cfg.Features.PersistEnabled = false
			}

			var store handlers.RunStore
			if cfg.Features.PersistEnabled {
				conn, err := db.NewConnection(ctx, "")
				if err != nil {
					return err
				}
				defer conn.Close()
				if err := conn.Migrate(); err != nil {
					return err
				}
				store = db.NewStore(conn)
				logger.Info("persistence enabled")
			}

			caps := config.LoadCapabilities()
			semantic := embeddings.NewHandle(embeddings.DefaultLoader(caps))
			defer semantic.Close()

			logger.Info("capabilities",
				zap.Bool("double_metaphone", caps.DoubleMetaphone),
				zap.Bool("semantic", caps.Semantic))

			return web.NewServer(cfg, store, caps, semantic).Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "listen address")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "listen port")
	cmd.Flags().BoolVar(&noDB, "no-db", false, "run without a database")

	return cmd
}
