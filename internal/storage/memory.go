package storage

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"

	"github.com/bull/pdf-qa-server/internal/chunker"
	"github.com/bull/pdf-qa-server/internal/embedding"
)

const memoryCollection = "chunks"

// MemoryIndex keeps the index in an in-process chromem collection.
// Nothing is persisted; the index lives as long as the process.
type MemoryIndex struct {
	seal
	db         *chromem.DB
	collection *chromem.Collection
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{db: chromem.NewDB()}
}

// Build adds every record to a fresh collection and seals the index.
func (m *MemoryIndex) Build(ctx context.Context, records []Record) (err error) {
	if err := m.begin(); err != nil {
		return err
	}
	dim, err := validateRecords(records)
	defer func() { m.finish(len(records), dim, err) }()
	if err != nil {
		return err
	}

	// Embeddings are always supplied, so the collection never needs an embedding func.
	collection, err := m.db.CreateCollection(memoryCollection, nil, nil)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.Chunk.ID,
			Content:   r.Chunk.Text,
			Metadata:  chunkMetadata(r.Chunk),
			Embedding: append([]float32(nil), r.Embedding...),
		}
	}

	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		_ = m.db.DeleteCollection(memoryCollection)
		return fmt.Errorf("add documents: %w", err)
	}

	m.collection = collection
	return nil
}

// Query ranks the whole collection by cosine similarity and returns the top k.
// chromem's own ordering of equal scores is not specified, so ties are
// resolved here.
func (m *MemoryIndex) Query(ctx context.Context, vec embedding.Embedding, k int) ([]ScoredChunk, error) {
	count, dim, err := m.ready()
	if err != nil {
		return nil, err
	}
	if err := checkQuery(vec, dim); err != nil {
		return nil, err
	}

	results, err := m.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: append([]float32(nil), vec...),
		NResults:       count,
	})
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	hits := make([]ScoredChunk, 0, len(results))
	for _, r := range results {
		c, err := chunkFromMetadata(r.ID, r.Content, r.Metadata)
		if err != nil {
			return nil, err
		}
		hits = append(hits, ScoredChunk{Chunk: c, Score: float64(r.Similarity)})
	}
	sortScored(hits)

	return hits[:min(normalizeK(k), len(hits))], nil
}

// Len returns the number of indexed chunks.
func (m *MemoryIndex) Len() int { return m.len() }

// Close is a no-op; the collection is released with the index.
func (m *MemoryIndex) Close() error { return nil }

func chunkMetadata(c chunker.Chunk) map[string]string {
	return map[string]string{
		"ordinal":     strconv.Itoa(c.Ordinal),
		"page":        strconv.Itoa(c.Page),
		"chunk_index": strconv.Itoa(c.Index),
		"offset":      strconv.Itoa(c.Offset),
	}
}

func chunkFromMetadata(id, text string, meta map[string]string) (chunker.Chunk, error) {
	c := chunker.Chunk{ID: id, Text: text}
	fields := []struct {
		key string
		dst *int
	}{
		{"ordinal", &c.Ordinal},
		{"page", &c.Page},
		{"chunk_index", &c.Index},
		{"offset", &c.Offset},
	}
	for _, f := range fields {
		v, err := strconv.Atoi(meta[f.key])
		if err != nil {
			return chunker.Chunk{}, fmt.Errorf("chunk %s: bad %s metadata %q", id, f.key, meta[f.key])
		}
		*f.dst = v
	}
	return c, nil
}
