package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bull/pdf-qa-server/internal/config"
	"github.com/bull/pdf-qa-server/internal/embedding"
	"github.com/bull/pdf-qa-server/internal/generator"
	"github.com/bull/pdf-qa-server/internal/storage"
)

// NewEmbedder builds the raw embedder selected by cfg.Embedder.Backend.
func NewEmbedder(cfg *config.Config, httpClient *http.Client) (embedding.Embedder, error) {
	ec := cfg.Embedder
	switch ec.Backend {
	case config.BackendOllama:
		return embedding.NewOllama(cfg.Ollama.Host, ec.Model, ec.BatchSize, httpClient)
	case config.BackendOpenAI:
		model := backendModel(ec.Model, embedding.DefaultOllamaModel, embedding.DefaultOpenAIModel)
		return embedding.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, model, ec.BatchSize, httpClient)
	case config.BackendHuggingFace:
		model := backendModel(ec.Model, embedding.DefaultOllamaModel, embedding.DefaultHuggingFaceModel)
		var timeout time.Duration
		if httpClient != nil {
			timeout = httpClient.Timeout
		}
		return embedding.NewHuggingFace(cfg.HuggingFace.Token, cfg.HuggingFace.URL, model, timeout)
	case config.BackendHashing:
		return embedding.NewHashing(ec.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedder backend %q", ec.Backend)
	}
}

// NewIndex builds the empty index selected by cfg.Index.Backend.
func NewIndex(ctx context.Context, cfg *config.Config) (storage.Index, error) {
	ic := cfg.Index
	switch ic.Backend {
	case config.IndexMemory:
		return storage.NewMemoryIndex(), nil
	case config.IndexQdrant:
		return storage.NewQdrantIndex(ctx, ic.Qdrant.Host, ic.Qdrant.Port, ic.Qdrant.Collection)
	case config.IndexPostgres:
		return storage.NewPostgresIndex(ctx, ic.Postgres.DSN, ic.Postgres.Table)
	default:
		return nil, fmt.Errorf("unknown index backend %q", ic.Backend)
	}
}

// NewGenerator builds the generator selected by cfg.Generator.Backend.
// The model is not loaded; see generator.Loader.
func NewGenerator(cfg *config.Config, httpClient *http.Client) (generator.Generator, error) {
	gc := cfg.Generator
	opts := func(model string) []generator.Option {
		return []generator.Option{
			generator.WithModel(model),
			generator.WithMaxTokens(gc.MaxTokens),
			generator.WithTemperature(gc.Temperature),
		}
	}

	switch gc.Backend {
	case config.BackendOllama:
		return generator.NewOllama(cfg.Ollama.Host, httpClient, opts(gc.Model)...)
	case config.BackendOpenAI:
		model := backendModel(gc.Model, generator.DefaultOllamaModel, generator.DefaultOpenAIModel)
		return generator.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, httpClient, opts(model)...)
	case config.BackendHuggingFace:
		model := backendModel(gc.Model, generator.DefaultOllamaModel, generator.DefaultHuggingFaceModel)
		return generator.NewHuggingFace(cfg.HuggingFace.Token, cfg.HuggingFace.GenerateURL, httpClient, opts(model)...)
	default:
		return nil, fmt.Errorf("unknown generator backend %q", gc.Backend)
	}
}

// backendModel maps the configuration default, which names an Ollama model,
// to the equivalent default of another backend.
func backendModel(configured, ollamaDefault, backendDefault string) string {
	if configured == "" || configured == ollamaDefault {
		return backendDefault
	}
	return configured
}
