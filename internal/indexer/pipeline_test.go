package indexer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/pdf-qa-server/internal/chunker"
	"github.com/bull/pdf-qa-server/internal/document"
	"github.com/bull/pdf-qa-server/internal/document/pdftest"
	"github.com/bull/pdf-qa-server/internal/embedding"
	"github.com/bull/pdf-qa-server/internal/storage"
)

func newPipeline(t *testing.T, e embedding.Embedder, idx storage.Index) *Pipeline {
	t.Helper()
	c, err := chunker.New(40, 10)
	require.NoError(t, err)
	return NewPipeline(c, e, idx, zerolog.Nop())
}

func TestPipeline_Run(t *testing.T) {
	path := pdftest.Write(t,
		"The sky is blue.",
		"",
		strings.Repeat("Golf balls must be dropped from knee height. ", 3),
	)
	idx := storage.NewMemoryIndex()
	p := newPipeline(t, embedding.NewHashing(128), idx)

	result, err := p.Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Pages)
	assert.Equal(t, 1, result.BlankPages)
	assert.Equal(t, 128, result.Dimension)
	assert.Greater(t, result.TotalChunks, 2)
	assert.Equal(t, result.TotalChunks, idx.Len())

	sky, err := embedding.NewHashing(128).Embed(context.Background(), "sky blue")
	require.NoError(t, err)
	hits, err := idx.Query(context.Background(), sky, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].Chunk.Text, "sky is blue")
	assert.Equal(t, 1, hits[0].Chunk.Page)
}

func TestPipeline_LoadError(t *testing.T) {
	idx := storage.NewMemoryIndex()
	p := newPipeline(t, embedding.NewHashing(16), idx)

	_, err := p.Run(context.Background(), "/nonexistent/document.pdf")
	assert.ErrorIs(t, err, document.ErrLoad)

	_, err = idx.Query(context.Background(), make(embedding.Embedding, 16), 4)
	assert.ErrorIs(t, err, storage.ErrIndexNotBuilt)
}

func TestPipeline_BlankDocument(t *testing.T) {
	path := pdftest.Write(t, "", "")
	p := newPipeline(t, embedding.NewHashing(16), storage.NewMemoryIndex())

	_, err := p.Run(context.Background(), path)
	assert.ErrorIs(t, err, ErrNoText)
}

func TestPipeline_WhitespaceRun(t *testing.T) {
	path := pdftest.Write(t, "alpha"+strings.Repeat(" ", 40)+"omega")
	c, err := chunker.New(10, 2)
	require.NoError(t, err)
	idx := storage.NewMemoryIndex()
	guard := embedding.NewGuard(embedding.NewHashing(16), 512, zerolog.Nop())

	result, err := NewPipeline(c, guard, idx, zerolog.Nop()).Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, result.TotalChunks, idx.Len())
	assert.GreaterOrEqual(t, result.TotalChunks, 1)
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) (embedding.Embedding, error) {
	return nil, errors.New("embedder down")
}

func (failingEmbedder) EmbedBatch(context.Context, []string) ([]embedding.Embedding, error) {
	return nil, errors.New("embedder down")
}

func (failingEmbedder) Name() string { return "failing" }

func TestPipeline_EmbedderError(t *testing.T) {
	path := pdftest.Write(t, "Some text.")
	idx := storage.NewMemoryIndex()
	p := newPipeline(t, failingEmbedder{}, idx)

	_, err := p.Run(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedder down")
	assert.Zero(t, idx.Len())
}

func TestPipeline_RunTwice(t *testing.T) {
	path := pdftest.Write(t, "The sky is blue.")
	p := newPipeline(t, embedding.NewHashing(16), storage.NewMemoryIndex())

	_, err := p.Run(context.Background(), path)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), path)
	assert.ErrorIs(t, err, storage.ErrIndexSealed)
}
