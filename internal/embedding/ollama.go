package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// DefaultOllamaModel is the Ollama build of all-MiniLM-L6-v2.
const DefaultOllamaModel = "all-minilm"

// Ollama generates embeddings with a local Ollama server via /api/embed.
type Ollama struct {
	client    *api.Client
	model     string
	batchSize int
}

// NewOllama creates an embedder against the server at host.
func NewOllama(host, model string, batchSize int, httpClient *http.Client) (*Ollama, error) {
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &Ollama{
		client:    api.NewClient(base, httpClient),
		model:     model,
		batchSize: batchSize,
	}, nil
}

// Name returns the backend and model.
func (o *Ollama) Name() string { return "ollama/" + o.model }

// Embed returns the embedding of one text.
func (o *Ollama) Embed(ctx context.Context, text string) (Embedding, error) {
	vecs, err := o.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch sends texts in batches and preserves input order.
func (o *Ollama) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	all := make([]Embedding, 0, len(texts))
	for i, batch := range batches(texts, o.batchSize) {
		vecs, err := o.embed(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", i, err)
		}
		all = append(all, vecs...)
	}
	return all, nil
}

func (o *Ollama) embed(ctx context.Context, texts []string) ([]Embedding, error) {
	truncate := true
	resp, err := o.client.Embed(ctx, &api.EmbedRequest{
		Model:    o.model,
		Input:    texts,
		Truncate: &truncate,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, len(resp.Embeddings), len(texts))
	}

	out := make([]Embedding, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = Embedding(e)
	}
	return out, nil
}
