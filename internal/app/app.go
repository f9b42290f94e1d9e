// Package app assembles the question-answering components from configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/bull/pdf-qa-server/internal/chunker"
	"github.com/bull/pdf-qa-server/internal/config"
	"github.com/bull/pdf-qa-server/internal/embedding"
	"github.com/bull/pdf-qa-server/internal/generator"
	"github.com/bull/pdf-qa-server/internal/indexer"
	"github.com/bull/pdf-qa-server/internal/rag"
	"github.com/bull/pdf-qa-server/internal/storage"
)

// App is the fully initialised process state: a sealed index, a loaded
// generator and the service answering questions against them.
type App struct {
	Config    *config.Config
	Service   *rag.Service
	Embedder  *embedding.Guard
	Generator generator.Generator
	Index     storage.Index
	Stats     *indexer.IndexResult
	Logger    zerolog.Logger
	StartedAt time.Time
}

type options struct {
	embedder   embedding.Embedder
	generator  generator.Generator
	index      storage.Index
	httpClient *http.Client
}

// Option overrides a component that would otherwise be built from config.
type Option func(*options)

// WithEmbedder uses e instead of the configured embedder backend.
func WithEmbedder(e embedding.Embedder) Option {
	return func(o *options) { o.embedder = e }
}

// WithGenerator uses g instead of the configured generator backend.
func WithGenerator(g generator.Generator) Option {
	return func(o *options) { o.generator = g }
}

// WithIndex uses idx instead of the configured index backend.
func WithIndex(idx storage.Index) Option {
	return func(o *options) { o.index = idx }
}

// WithHTTPClient sets the client used by the remote model backends.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New indexes the configured document and loads the generator. It returns
// only once the process is ready to answer questions; any failure is fatal.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts ...Option) (*App, error) {
	o := &options{httpClient: &http.Client{Timeout: 5 * time.Minute}}
	for _, opt := range opts {
		opt(o)
	}

	c, err := chunker.New(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	raw := o.embedder
	if raw == nil {
		raw, err = NewEmbedder(cfg, o.httpClient)
		if err != nil {
			return nil, fmt.Errorf("create embedder: %w", err)
		}
	}
	guard := embedding.NewGuard(raw, cfg.Embedder.MaxInputTokens, logger)

	idx := o.index
	if idx == nil {
		idx, err = NewIndex(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	}

	a, err := initialise(ctx, cfg, logger, o, c, guard, idx)
	if err != nil {
		if cerr := idx.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("Failed to close index")
		}
		return nil, err
	}
	return a, nil
}

func initialise(ctx context.Context, cfg *config.Config, logger zerolog.Logger, o *options,
	c *chunker.Chunker, guard *embedding.Guard, idx storage.Index) (*App, error) {
	logger.Info().
		Str("document", cfg.Document.Path).
		Str("embedder", guard.Name()).
		Str("index", cfg.Index.Backend).
		Msg("Indexing document")

	stats, err := indexer.NewPipeline(c, guard, idx, logger).Run(ctx, cfg.Document.Path)
	if err != nil {
		return nil, fmt.Errorf("index document: %w", err)
	}

	gen := o.generator
	if gen == nil {
		gen, err = NewGenerator(cfg, o.httpClient)
		if err != nil {
			return nil, fmt.Errorf("create generator: %w", err)
		}
	}
	if l, ok := gen.(generator.Loader); ok {
		logger.Info().Str("generator", gen.Name()).Msg("Loading generator")
		if err := l.Load(ctx); err != nil {
			return nil, fmt.Errorf("load generator: %w", err)
		}
	}

	return &App{
		Config:    cfg,
		Service:   rag.NewService(guard, idx, gen, cfg.Index.TopK, logger),
		Embedder:  guard,
		Generator: gen,
		Index:     idx,
		Stats:     stats,
		Logger:    logger,
		StartedAt: time.Now(),
	}, nil
}

// CheckGenerator reports whether the generator backend is reachable.
// Generators without a health probe are assumed healthy.
func (a *App) CheckGenerator(ctx context.Context) error {
	if p, ok := a.Generator.(generator.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the index.
func (a *App) Close() error {
	return a.Index.Close()
}
