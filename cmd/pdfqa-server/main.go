// Package main provides the HTTP server entry point for PDF question answering.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/bull/pdf-qa-server/internal/api"
	"github.com/bull/pdf-qa-server/internal/app"
	"github.com/bull/pdf-qa-server/internal/config"
	"github.com/bull/pdf-qa-server/internal/logging"
	mcpserver "github.com/bull/pdf-qa-server/internal/mcp"
)

func main() {
	configPath := flag.String("config", getEnv("PDFQA_CONFIG", "config.yaml"), "path to the YAML config file")
	flag.Parse()

	// Load .env file if present (local development), ignore if missing (production)
	envErr := godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Setup("info", "console")
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	if envErr != nil {
		logger.Debug().Msg("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Index the document and load the model before accepting connections
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Startup failed")
	}
	defer a.Close()

	routerCfg := api.Config{
		Service: a.Service,
		Health:  a,
		Info: api.HealthInfo{
			Chunks:    a.Index.Len(),
			Embedder:  a.Embedder.Name(),
			Generator: a.Generator.Name(),
		},
		Document: cfg.Document.Path,
		Logger:   logger,
	}
	if cfg.Server.EnableMCP {
		server := mcpserver.NewServer(&mcpserver.Config{
			Service:  a.Service,
			Document: cfg.Document.Path,
		})
		routerCfg.MCP = mcpserver.NewHTTPHandler(server)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Server.Addr).
			Int("chunks", a.Index.Len()).
			Bool("mcp", cfg.Server.EnableMCP).
			Msg("Starting HTTP server (query at /api/query, health at /health)")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	case <-ctx.Done():
		logger.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Graceful shutdown failed")
			os.Exit(1)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
