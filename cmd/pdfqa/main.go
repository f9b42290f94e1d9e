// Package main provides the pdfqa CLI for asking questions about the document
// and managing it locally.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bull/pdf-qa-server/internal/config"
	"github.com/bull/pdf-qa-server/internal/logging"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:          "pdfqa",
	Short:        "Question answering over a single PDF",
	Long:         "CLI tool for querying, inspecting and downloading the document served by pdfqa-server",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline progress to stderr")

	rootCmd.AddCommand(askCmd, chunksCmd, fetchCmd, mcpCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config and sets up logging. Progress logs are only
// shown with --verbose so command output stays readable.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	level := "warn"
	if verbose {
		level = cfg.Log.Level
	}
	return cfg, logging.Setup(level, cfg.Log.Format), nil
}
