package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bull/pdf-qa-server/internal/chunker"
	"github.com/bull/pdf-qa-server/internal/embedding"
)

// DefaultTopK is the number of chunks returned when a query asks for k <= 0.
const DefaultTopK = 4

// Record pairs a chunk with its embedding for index construction.
type Record struct {
	Chunk     chunker.Chunk
	Embedding embedding.Embedding
}

// ScoredChunk is a query hit. Score is the cosine similarity to the query,
// higher is closer.
type ScoredChunk struct {
	Chunk chunker.Chunk
	Score float64
}

// Index is a write-once nearest-neighbour store over chunk embeddings.
type Index interface {
	// Build loads records into the index and seals it. It can succeed once.
	Build(ctx context.Context, records []Record) error
	// Query returns min(k, Len()) chunks nearest-first. Equal scores are
	// ordered by chunk ordinal so repeated queries return the same sequence.
	Query(ctx context.Context, vec embedding.Embedding, k int) ([]ScoredChunk, error)
	// Len returns the number of indexed chunks.
	Len() int
	Close() error
}

// validateRecords checks a record set before Build and returns its dimension.
func validateRecords(records []Record) (int, error) {
	if len(records) == 0 {
		return 0, ErrEmptyIndex
	}
	dim := len(records[0].Embedding)
	if dim == 0 {
		return 0, fmt.Errorf("%w: record 0 has an empty embedding", ErrDimensionMismatch)
	}
	for i, r := range records {
		if len(r.Embedding) != dim {
			return 0, fmt.Errorf("%w: record %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(r.Embedding), dim)
		}
	}
	return dim, nil
}

// sortScored orders hits by score descending, then ordinal ascending.
func sortScored(hits []ScoredChunk) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.Ordinal < hits[j].Chunk.Ordinal
	})
}

func normalizeK(k int) int {
	if k <= 0 {
		return DefaultTopK
	}
	return k
}

// seal tracks the write-once lifecycle shared by every backend.
type seal struct {
	mu        sync.RWMutex
	building  bool
	sealed    bool
	count     int
	dimension int
}

// begin reserves the single Build call.
func (s *seal) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed || s.building {
		return ErrIndexSealed
	}
	s.building = true
	return nil
}

// finish seals the index on success, or releases the reservation on failure
// so a later Build can retry.
func (s *seal) finish(count, dimension int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.building = false
	if err != nil {
		return
	}
	s.sealed = true
	s.count = count
	s.dimension = dimension
}

// ready returns the index size and dimension once sealed.
func (s *seal) ready() (count, dimension int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.sealed {
		return 0, 0, ErrIndexNotBuilt
	}
	return s.count, s.dimension, nil
}

func (s *seal) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

func checkQuery(vec embedding.Embedding, dimension int) error {
	if len(vec) != dimension {
		return fmt.Errorf("%w: query has %d dimensions, expected %d", ErrDimensionMismatch, len(vec), dimension)
	}
	return nil
}
