// Package generator turns a question and retrieved chunks into an answer
// using a causal language model.
package generator

import (
	"context"
	"errors"
	"strings"

	"github.com/bull/pdf-qa-server/internal/chunker"
)

// DefaultMaxTokens bounds every generated answer.
const DefaultMaxTokens = 300

// ErrEmptyCompletion is returned when a backend responds without any choice.
var ErrEmptyCompletion = errors.New("model returned no completion")

// Generator produces a bounded continuation of a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// Name identifies the backend and model, e.g. "ollama/phi".
	Name() string
}

// Loader is implemented by generators that must load or verify their model
// before serving. A Load error is fatal at startup.
type Loader interface {
	Load(ctx context.Context) error
}

// Pinger is implemented by generators whose backend can be health-checked cheaply.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options holds the settings shared by every backend.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Option configures a generator backend.
type Option func(*Options)

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(o *Options) {
		if model != "" {
			o.Model = model
		}
	}
}

// WithMaxTokens sets the generation bound. Values <= 0 keep the default.
func WithMaxTokens(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Options) { o.Temperature = t }
}

// NewOptions applies opts on top of the given default model.
func NewOptions(defaultModel string, opts ...Option) Options {
	options := Options{
		Model:     defaultModel,
		MaxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

const promptHeader = "Use the following pieces of context to answer the question at the end. " +
	"If you don't know the answer, just say that you don't know, don't try to make up an answer.\n\n"

// BuildPrompt stuffs the chunk texts, in retrieval order, and the question
// into a single QA prompt.
func BuildPrompt(question string, chunks []chunker.Chunk) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(c.Text)
	}
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nHelpful Answer:")
	return b.String()
}
