package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultOpenAIModel is the OpenAI model used for generating embeddings.
	DefaultOpenAIModel = "text-embedding-3-small"

	// DefaultOpenAIBatchSize balances requests-per-minute vs tokens-per-minute rate limits.
	// OpenAI supports up to 2048 texts per batch, but smaller batches reduce TPM pressure.
	DefaultOpenAIBatchSize = 500
)

// OpenAI generates embeddings with the OpenAI embeddings API.
// It batches requests and retries with exponential backoff on rate limit errors.
type OpenAI struct {
	client    openai.Client
	model     string
	batchSize int
	backoff   func() backoff.BackOff
}

// OpenAIOption configures an OpenAI embedder.
type OpenAIOption func(*OpenAI)

// WithOpenAIBackOff replaces the retry policy used for rate-limited requests.
func WithOpenAIBackOff(fn func() backoff.BackOff) OpenAIOption {
	return func(o *OpenAI) { o.backoff = fn }
}

// NewOpenAI creates an embedder. An empty apiKey is an error; an empty
// baseURL uses the public endpoint.
func NewOpenAI(apiKey, baseURL, model string, batchSize int, httpClient *http.Client, opts ...OpenAIOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if batchSize <= 0 {
		batchSize = DefaultOpenAIBatchSize
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Retries are driven by backoff below.
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(httpClient))
	}

	o := &OpenAI{
		client:    openai.NewClient(reqOpts...),
		model:     model,
		batchSize: batchSize,
		backoff:   defaultBackOff,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Name returns the backend and model.
func (o *OpenAI) Name() string { return "openai/" + o.model }

// Embed returns the embedding of one text.
func (o *OpenAI) Embed(ctx context.Context, text string) (Embedding, error) {
	vecs, err := o.embedBatchWithRetry(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for texts in batches, preserving order.
func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	all := make([]Embedding, 0, len(texts))
	for i := 0; i < len(texts); i += o.batchSize {
		end := min(i+o.batchSize, len(texts))

		vecs, err := o.embedBatchWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		all = append(all, vecs...)
	}
	return all, nil
}

// embedBatchWithRetry generates embeddings for a single batch.
// Rate limit errors (HTTP 429) are retried; anything else fails immediately.
func (o *OpenAI) embedBatchWithRetry(ctx context.Context, texts []string) ([]Embedding, error) {
	var embeddings []Embedding

	operation := func() error {
		resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: openai.EmbeddingModel(o.model),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Data) != len(texts) {
			return backoff.Permanent(fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, len(resp.Data), len(texts)))
		}

		// Data carries its own index; place each vector accordingly.
		embeddings = make([]Embedding, len(resp.Data))
		for i, data := range resp.Data {
			idx := int(data.Index)
			if idx < 0 || idx >= len(embeddings) {
				idx = i
			}
			embeddings[idx] = toFloat32(data.Embedding)
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(o.backoff(), ctx)); err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	return embeddings, nil
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}
