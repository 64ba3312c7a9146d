package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/api"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reconciliation API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort > 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		opts, err := cfg.ReconcileOptions(time.Now())
		if err != nil {
			return err
		}

		deps := api.Deps{Options: opts, Concurrency: cfg.Batch.Concurrency}
		if cfg.Anthropic.Key != "" {
			env, err := initPipeline(ctx, true)
			if err != nil {
				return err
			}
			defer env.Close()
			deps.Store = env.Store
			deps.Pipeline = env.Pipeline
		} else {
			zap.L().Warn("anthropic.key not set; document verification disabled")
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			deps.Store = st
		}

		return api.New(cfg.Server, deps).ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
