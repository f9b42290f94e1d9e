// Package embedding maps text to fixed-length vectors.
//
// Every backend is wrapped by a Guard that keeps inputs within the model's
// context budget and validates the vectors it returns, so callers never see
// an empty, non-finite or differently-sized vector.
package embedding

import (
	"context"
	"errors"
)

// Embedding is a dense vector produced by an Embedder.
type Embedding []float32

// Embedder turns text into embeddings. Implementations must be safe for
// concurrent use once constructed.
type Embedder interface {
	// Embed returns the embedding of a single text.
	Embed(ctx context.Context, text string) (Embedding, error)
	// EmbedBatch returns one embedding per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error)
	// Name identifies the backend and model, e.g. "ollama/all-minilm".
	Name() string
}

var (
	ErrEmptyInput        = errors.New("empty embedding input")
	ErrInvalidVector     = errors.New("invalid embedding vector")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrCountMismatch     = errors.New("embedding count does not match input count")
)

// toFloat32 converts []float64 to []float32.
// Some APIs return float64; the index stores float32.
func toFloat32(f64 []float64) Embedding {
	f32 := make(Embedding, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}

func batches(texts []string, size int) [][]string {
	if size <= 0 {
		size = len(texts)
	}
	var out [][]string
	for i := 0; i < len(texts); i += size {
		out = append(out, texts[i:min(i+size, len(texts))])
	}
	return out
}
