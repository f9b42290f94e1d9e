package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Guard wraps an Embedder with input truncation and output validation.
type Guard struct {
	inner    Embedder
	maxChars int
	logger   zerolog.Logger

	mu        sync.Mutex
	dimension int
}

// NewGuard wraps inner. Inputs longer than maxInputTokens are truncated,
// using the rough estimate of 4 characters per token.
func NewGuard(inner Embedder, maxInputTokens int, logger zerolog.Logger) *Guard {
	return &Guard{
		inner:    inner,
		maxChars: maxInputTokens * 4,
		logger:   logger,
	}
}

// Name returns the wrapped embedder's name.
func (g *Guard) Name() string { return g.inner.Name() }

// Dimension returns the vector length seen so far, or 0 before the first call.
func (g *Guard) Dimension() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dimension
}

// Embed truncates, embeds and validates one text.
func (g *Guard) Embed(ctx context.Context, text string) (Embedding, error) {
	text, err := g.prepare(text)
	if err != nil {
		return nil, err
	}
	vec, err := g.inner.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.inner.Name(), err)
	}
	if err := g.check(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch truncates, embeds and validates texts, preserving order.
func (g *Guard) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	prepared := make([]string, len(texts))
	for i, t := range texts {
		p, err := g.prepare(t)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		prepared[i] = p
	}

	vecs, err := g.inner.EmbedBatch(ctx, prepared)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.inner.Name(), err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, len(vecs), len(texts))
	}
	for i, v := range vecs {
		if err := g.check(v); err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
	}
	return vecs, nil
}

func (g *Guard) prepare(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}
	if g.maxChars <= 0 || utf8.RuneCountInString(text) <= g.maxChars {
		return text, nil
	}

	g.logger.Debug().
		Int("chars", utf8.RuneCountInString(text)).
		Int("max_chars", g.maxChars).
		Msg("truncating embedding input")

	return string([]rune(text)[:g.maxChars]), nil
}

// check rejects empty, non-finite and all-zero vectors, and vectors whose
// length differs from the first one this guard accepted.
func (g *Guard) check(vec Embedding) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector", ErrInvalidVector)
	}
	var norm float64
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite value at %d", ErrInvalidVector, i)
		}
		norm += f * f
	}
	if norm == 0 {
		return fmt.Errorf("%w: zero vector", ErrInvalidVector)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dimension == 0 {
		g.dimension = len(vec)
		return nil
	}
	if len(vec) != g.dimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), g.dimension)
	}
	return nil
}
