package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/config"
)

var cfg *config.Config

var (
	outputFormat string
	xlsxPath     string
	shapeFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "recon-cli",
	Short: "Reconcile extracted real estate records against verification reports",
	Long: "Compares extracted property records, audits their internal arithmetic, applies verifier corrections " +
		"and scores the outcome. Can also run extraction and verification against Claude and keep run history.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		switch outputFormat {
		case formatText, formatJSON, formatYAML:
		default:
			return fmt.Errorf("unknown --format %q (want text, json or yaml)", outputFormat)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", formatText, "output format: text, json or yaml")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
