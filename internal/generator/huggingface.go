package generator

import (
	"context"
	"fmt"
	"net/http"
)

// DefaultHuggingFaceModel is the causal LM the service was designed around.
const DefaultHuggingFaceModel = "microsoft/phi-2"

// HuggingFaceURL returns the OpenAI-compatible root of the serverless
// text-generation-inference endpoint for model.
func HuggingFaceURL(model string) string {
	return "https://api-inference.huggingface.co/models/" + model + "/v1/"
}

// HuggingFace generates answers through a text-generation-inference server's
// OpenAI-compatible completions route. The route bounds new tokens with
// max_tokens and returns only the continuation, not the prompt.
type HuggingFace struct {
	completions *OpenAI
}

// NewHuggingFace creates a generator. An empty url uses HuggingFaceURL for the
// model; a dedicated endpoint is given as its /v1/ root.
func NewHuggingFace(token, url string, httpClient *http.Client, opts ...Option) (*HuggingFace, error) {
	if token == "" {
		return nil, fmt.Errorf("HUGGINGFACEHUB_API_TOKEN not set")
	}
	options := NewOptions(DefaultHuggingFaceModel, opts...)
	if url == "" {
		url = HuggingFaceURL(options.Model)
	}

	c := newCompletions(token, url, httpClient, options)
	c.omitZeroTemperature = true
	return &HuggingFace{completions: c}, nil
}

// Name returns the backend and model.
func (h *HuggingFace) Name() string { return "huggingface/" + h.completions.options.Model }

// Load runs a one-token generation so a missing or gated model fails startup.
func (h *HuggingFace) Load(ctx context.Context) error {
	if _, err := h.completions.complete(ctx, "Hello", 1); err != nil {
		return fmt.Errorf("huggingface model %s: %w", h.completions.options.Model, err)
	}
	return nil
}

// Generate returns the completion of prompt, bounded by MaxTokens.
func (h *HuggingFace) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := h.completions.complete(ctx, prompt, h.completions.options.MaxTokens)
	if err != nil {
		return "", fmt.Errorf("huggingface generate: %w", err)
	}
	return text, nil
}
