package generator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ollama/ollama/api"
)

// DefaultOllamaModel is the Ollama build of microsoft/phi-2.
const DefaultOllamaModel = "phi"

// Ollama generates answers with a local Ollama server.
type Ollama struct {
	client  *api.Client
	options Options
	backoff func() backoff.BackOff
}

// NewOllama creates a generator against the server at host.
func NewOllama(host string, httpClient *http.Client, opts ...Option) (*Ollama, error) {
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Ollama{
		client:  api.NewClient(base, httpClient),
		options: NewOptions(DefaultOllamaModel, opts...),
		backoff: readinessBackOff,
	}, nil
}

// Name returns the backend and model.
func (o *Ollama) Name() string { return "ollama/" + o.options.Model }

// Load waits for the server, checks the model is installed and warms it up
// so the first request does not pay the load time.
func (o *Ollama) Load(ctx context.Context) error {
	if err := backoff.Retry(func() error { return o.Ping(ctx) }, backoff.WithContext(o.backoff(), ctx)); err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}

	if _, err := o.client.Show(ctx, &api.ShowRequest{Model: o.options.Model}); err != nil {
		return fmt.Errorf("ollama model %s: %w", o.options.Model, err)
	}

	// An empty prompt only loads the model into memory.
	stream := false
	err := o.client.Generate(ctx, &api.GenerateRequest{Model: o.options.Model, Stream: &stream},
		func(api.GenerateResponse) error { return nil })
	if err != nil {
		return fmt.Errorf("ollama warm-up %s: %w", o.options.Model, err)
	}
	return nil
}

// Ping checks that the server answers.
func (o *Ollama) Ping(ctx context.Context) error {
	return o.client.Heartbeat(ctx)
}

// Generate returns the completion of prompt, bounded by MaxTokens.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  o.options.Model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]any{
			"num_predict": o.options.MaxTokens,
			"temperature": o.options.Temperature,
		},
	}

	var b strings.Builder
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		_, err := b.WriteString(resp.Response)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return b.String(), nil
}

func readinessBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}
