package generator

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is the completions-endpoint model closest to a plain causal LM.
const DefaultOpenAIModel = "gpt-3.5-turbo-instruct"

// OpenAI generates answers with the legacy completions endpoint, which takes
// the prompt verbatim rather than as a chat message.
type OpenAI struct {
	client  openai.Client
	options Options
	// omitZeroTemperature leaves temperature out of the request when it is 0,
	// for servers that reject 0 and default to greedy decoding.
	omitZeroTemperature bool
}

// NewOpenAI creates a generator. An empty baseURL uses the public endpoint.
func NewOpenAI(apiKey, baseURL string, httpClient *http.Client, opts ...Option) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	return newCompletions(apiKey, baseURL, httpClient, NewOptions(DefaultOpenAIModel, opts...)), nil
}

func newCompletions(apiKey, baseURL string, httpClient *http.Client, options Options) *OpenAI {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(httpClient))
	}

	return &OpenAI{
		client:  openai.NewClient(reqOpts...),
		options: options,
	}
}

// Name returns the backend and model.
func (o *OpenAI) Name() string { return "openai/" + o.options.Model }

// Load checks the model exists and the key can see it.
func (o *OpenAI) Load(ctx context.Context) error {
	if _, err := o.client.Models.Get(ctx, o.options.Model); err != nil {
		return fmt.Errorf("openai model %s: %w", o.options.Model, err)
	}
	return nil
}

// Ping reuses the model lookup as a health check.
func (o *OpenAI) Ping(ctx context.Context) error {
	return o.Load(ctx)
}

// Generate returns the completion of prompt, bounded by MaxTokens.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	return o.complete(ctx, prompt, o.options.MaxTokens)
}

// complete returns only the generated continuation, never the prompt.
func (o *OpenAI) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	params := openai.CompletionNewParams{
		Model: openai.CompletionNewParamsModel(o.options.Model),
		Prompt: openai.CompletionNewParamsPromptUnion{
			OfString: openai.String(prompt),
		},
		MaxTokens: openai.Int(int64(maxTokens)),
	}
	if o.options.Temperature > 0 || !o.omitZeroTemperature {
		params.Temperature = openai.Float(o.options.Temperature)
	}

	resp, err := o.client.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Text, nil
}
