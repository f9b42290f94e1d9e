package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	hfembeddings "github.com/tmc/langchaingo/embeddings/huggingface"
	"github.com/tmc/langchaingo/llms/huggingface"
)

// DefaultHuggingFaceModel is the sentence-transformers build of all-MiniLM-L6-v2,
// the same model Ollama serves as all-minilm.
const DefaultHuggingFaceModel = "sentence-transformers/all-MiniLM-L6-v2"

// HuggingFace generates embeddings through the Hugging Face inference API.
// The client sends through http.DefaultClient, so a non-zero timeout bounds
// each call with a context deadline instead.
type HuggingFace struct {
	embedder embeddings.Embedder
	model    string
	timeout  time.Duration
}

// NewHuggingFace creates an embedder. An empty url uses the public inference endpoint.
func NewHuggingFace(token, url, model string, timeout time.Duration) (*HuggingFace, error) {
	if token == "" {
		return nil, fmt.Errorf("HUGGINGFACEHUB_API_TOKEN not set")
	}
	if model == "" {
		model = DefaultHuggingFaceModel
	}

	llmOpts := []huggingface.Option{
		huggingface.WithToken(token),
		huggingface.WithModel(model),
	}
	if url != "" {
		llmOpts = append(llmOpts, huggingface.WithURL(url))
	}
	llm, err := huggingface.New(llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("create huggingface client: %w", err)
	}

	emb, err := hfembeddings.NewHuggingface(
		hfembeddings.WithClient(*llm),
		hfembeddings.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create huggingface embedder: %w", err)
	}

	return &HuggingFace{embedder: emb, model: model, timeout: timeout}, nil
}

// Name returns the backend and model.
func (h *HuggingFace) Name() string { return "huggingface/" + h.model }

// Embed returns the embedding of one text.
func (h *HuggingFace) Embed(ctx context.Context, text string) (Embedding, error) {
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	vec, err := h.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("huggingface embed: %w", err)
	}
	return Embedding(vec), nil
}

// EmbedBatch embeds texts in order.
func (h *HuggingFace) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	vecs, err := h.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("huggingface embed: %w", err)
	}
	out := make([]Embedding, len(vecs))
	for i, v := range vecs {
		out[i] = Embedding(v)
	}
	return out, nil
}

func (h *HuggingFace) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, h.timeout)
}
