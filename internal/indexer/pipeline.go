// Package indexer builds the vector index from the document at startup.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bull/pdf-qa-server/internal/chunker"
	"github.com/bull/pdf-qa-server/internal/document"
	"github.com/bull/pdf-qa-server/internal/embedding"
	"github.com/bull/pdf-qa-server/internal/storage"
)

// ErrNoText is returned when the document has no extractable text.
var ErrNoText = errors.New("document contains no extractable text")

// IndexResult contains statistics about an indexing operation.
type IndexResult struct {
	Path        string
	Pages       int
	BlankPages  int
	TotalChunks int
	Dimension   int
	Duration    time.Duration
}

// Pipeline runs Loader -> Chunker -> Embedder -> Index once.
type Pipeline struct {
	chunker  *chunker.Chunker
	embedder embedding.Embedder
	index    storage.Index
	logger   zerolog.Logger
}

// NewPipeline creates a new indexing pipeline with the given components.
func NewPipeline(c *chunker.Chunker, e embedding.Embedder, idx storage.Index, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		chunker:  c,
		embedder: e,
		index:    idx,
		logger:   logger,
	}
}

// Run loads the PDF at path and builds the index from it. Any failure
// leaves the index unbuilt.
func (p *Pipeline) Run(ctx context.Context, path string) (*IndexResult, error) {
	start := time.Now()
	result := &IndexResult{Path: path}

	pages, err := document.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	result.Pages = len(pages)
	p.logger.Info().Str("path", path).Int("pages", len(pages)).Msg("Loaded document")

	chunks := p.chunker.Split(pages)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoText, path)
	}
	result.TotalChunks = len(chunks)
	result.BlankPages = result.Pages - countPages(chunks)
	p.logger.Debug().
		Int("chunks", len(chunks)).
		Int("blank_pages", result.BlankPages).
		Int("chunk_size", p.chunker.Size()).
		Int("chunk_overlap", p.chunker.Overlap()).
		Msg("Chunked document")

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embeddings: got %d vectors for %d chunks", len(embeddings), len(chunks))
	}
	result.Dimension = len(embeddings[0])

	records := make([]storage.Record, len(chunks))
	for i, c := range chunks {
		records[i] = storage.Record{Chunk: c, Embedding: embeddings[i]}
	}
	if err := p.index.Build(ctx, records); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	result.Duration = time.Since(start)
	p.logger.Info().
		Int("chunks", result.TotalChunks).
		Int("dimension", result.Dimension).
		Str("embedder", p.embedder.Name()).
		Dur("duration", result.Duration).
		Msg("Indexing complete")

	return result, nil
}

func countPages(chunks []chunker.Chunk) int {
	seen := make(map[int]struct{})
	for _, c := range chunks {
		seen[c.Page] = struct{}{}
	}
	return len(seen)
}
