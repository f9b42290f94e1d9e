// Package rag answers questions about the indexed document.
package rag

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bull/pdf-qa-server/internal/chunker"
	"github.com/bull/pdf-qa-server/internal/embedding"
	"github.com/bull/pdf-qa-server/internal/generator"
	"github.com/bull/pdf-qa-server/internal/storage"
)

// Answer is the generated reply to a question.
type Answer struct {
	Text    string
	Sources []storage.ScoredChunk // retrieved context, nearest first
}

// Service runs retrieval and generation for one question at a time. It holds
// no per-request state and is safe for concurrent use.
type Service struct {
	embedder  embedding.Embedder
	index     storage.Index
	generator generator.Generator
	topK      int
	logger    zerolog.Logger
}

// NewService wires the pipeline stages together. topK <= 0 uses storage.DefaultTopK.
func NewService(e embedding.Embedder, idx storage.Index, g generator.Generator, topK int, logger zerolog.Logger) *Service {
	if topK <= 0 {
		topK = storage.DefaultTopK
	}
	return &Service{
		embedder:  e,
		index:     idx,
		generator: g,
		topK:      topK,
		logger:    logger,
	}
}

// TopK returns the number of chunks retrieved per question.
func (s *Service) TopK() int { return s.topK }

// Retrieve validates the question and returns the nearest chunks.
func (s *Service) Retrieve(ctx context.Context, question string) ([]storage.ScoredChunk, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &Error{Kind: KindValidation, Op: "validate question", Err: ErrEmptyQuestion}
	}

	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, &Error{Kind: KindRetrieval, Op: "embed question", Err: err}
	}

	hits, err := s.index.Query(ctx, vec, s.topK)
	if err != nil {
		return nil, &Error{Kind: KindRetrieval, Op: "query index", Err: err}
	}
	return hits, nil
}

// Answer retrieves context for question and generates the reply.
// The generated text is returned verbatim.
func (s *Service) Answer(ctx context.Context, question string) (Answer, error) {
	start := time.Now()

	hits, err := s.Retrieve(ctx, question)
	if err != nil {
		return Answer{}, err
	}

	chunks := make([]chunker.Chunk, len(hits))
	for i, h := range hits {
		chunks[i] = h.Chunk
	}
	prompt := generator.BuildPrompt(strings.TrimSpace(question), chunks)

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return Answer{}, &Error{Kind: KindGeneration, Op: "generate answer", Err: err}
	}

	s.logger.Debug().
		Int("chunks", len(hits)).
		Int("prompt_chars", len(prompt)).
		Dur("duration", time.Since(start)).
		Msg("answered question")

	return Answer{Text: text, Sources: hits}, nil
}
