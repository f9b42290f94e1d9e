package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/pdf-qa-server/internal/config"
	"github.com/bull/pdf-qa-server/internal/document"
	"github.com/bull/pdf-qa-server/internal/document/pdftest"
	"github.com/bull/pdf-qa-server/internal/embedding"
	"github.com/bull/pdf-qa-server/internal/generator"
	"github.com/bull/pdf-qa-server/internal/storage"
)

type captureGenerator struct {
	answer  string
	prompt  string
	loaded  bool
	loadErr error
	pingErr error
}

func (g *captureGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.answer, nil
}

func (g *captureGenerator) Name() string { return "capture" }

func (g *captureGenerator) Load(context.Context) error {
	g.loaded = true
	return g.loadErr
}

func (g *captureGenerator) Ping(context.Context) error { return g.pingErr }

func testConfig(t *testing.T, pages ...string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Document.Path = pdftest.Write(t, pages...)
	cfg.Embedder.Backend = config.BackendHashing
	cfg.Embedder.Dimension = 64
	return cfg
}

func TestNew_EndToEnd(t *testing.T) {
	cfg := testConfig(t, "The sky is blue.")
	gen := &captureGenerator{answer: " The sky is blue."}

	a, err := New(context.Background(), cfg, zerolog.Nop(), WithGenerator(gen))
	require.NoError(t, err)
	defer a.Close()

	assert.True(t, gen.loaded, "generator is loaded before serving")
	assert.Equal(t, 1, a.Stats.TotalChunks)
	assert.Equal(t, 1, a.Index.Len())
	assert.Equal(t, 64, a.Embedder.Dimension())

	answer, err := a.Service.Answer(context.Background(), "What color is the sky?")
	require.NoError(t, err)
	assert.Contains(t, answer.Text, "blue")
	assert.Contains(t, gen.prompt, "The sky is blue.")
	assert.Contains(t, gen.prompt, "Question: What color is the sky?\nHelpful Answer:")
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, 1, answer.Sources[0].Chunk.Page)

	assert.NoError(t, a.CheckGenerator(context.Background()))
	gen.pingErr = errors.New("down")
	assert.Error(t, a.CheckGenerator(context.Background()))
}

func TestNew_MissingDocument(t *testing.T) {
	cfg := testConfig(t, "x")
	cfg.Document.Path = "/nonexistent/document.pdf"
	gen := &captureGenerator{}

	_, err := New(context.Background(), cfg, zerolog.Nop(), WithGenerator(gen))
	assert.ErrorIs(t, err, document.ErrLoad)
	assert.False(t, gen.loaded, "generator is not loaded when indexing fails")
}

func TestNew_GeneratorLoadFails(t *testing.T) {
	cfg := testConfig(t, "The sky is blue.")
	gen := &captureGenerator{loadErr: errors.New("model not found")}

	_, err := New(context.Background(), cfg, zerolog.Nop(), WithGenerator(gen))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestNew_InvalidChunker(t *testing.T) {
	cfg := testConfig(t, "x")
	cfg.Chunker.ChunkOverlap = cfg.Chunker.ChunkSize

	_, err := New(context.Background(), cfg, zerolog.Nop(), WithGenerator(&captureGenerator{}))
	assert.Error(t, err)
}

func TestNew_WithIndex(t *testing.T) {
	cfg := testConfig(t, "The sky is blue.", "Grass is green.")
	idx := storage.NewMemoryIndex()

	a, err := New(context.Background(), cfg, zerolog.Nop(),
		WithGenerator(&captureGenerator{}),
		WithEmbedder(embedding.NewHashing(32)))
	require.NoError(t, err)
	assert.Equal(t, 32, a.Embedder.Dimension())
	assert.Equal(t, 2, a.Index.Len())

	a2, err := New(context.Background(), cfg, zerolog.Nop(),
		WithGenerator(&captureGenerator{}), WithIndex(idx))
	require.NoError(t, err)
	assert.Same(t, idx, a2.Index)
}

func TestFactories(t *testing.T) {
	cfg := config.Default()

	e, err := NewEmbedder(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "ollama/all-minilm", e.Name())

	g, err := NewGenerator(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "ollama/phi", g.Name())
	_, ok := g.(generator.Loader)
	assert.True(t, ok)

	cfg.Generator.Backend = config.BackendOpenAI
	cfg.OpenAI.APIKey = "sk-test"
	g, err = NewGenerator(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai/"+generator.DefaultOpenAIModel, g.Name())

	cfg.Embedder.Backend = "word2vec"
	_, err = NewEmbedder(cfg, nil)
	assert.Error(t, err)

	cfg.Index.Backend = "faiss"
	_, err = NewIndex(context.Background(), cfg)
	assert.Error(t, err)

	cfg.Index.Backend = config.IndexMemory
	idx, err := NewIndex(context.Background(), cfg)
	require.NoError(t, err)
	assert.Zero(t, idx.Len())
}

func TestNewGenerator_HuggingFace(t *testing.T) {
	var (
		body   map[string]any
		client = &countingClient{}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "text_completion",
			"created": 1,
			"model":   body["model"],
			"choices": []map[string]any{{"index": 0, "text": " Blue.", "finish_reason": "stop", "logprobs": nil}},
		})
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Generator.Backend = config.BackendHuggingFace
	cfg.Generator.MaxTokens = 120
	cfg.HuggingFace.Token = "hf-test"
	cfg.HuggingFace.GenerateURL = server.URL + "/v1/"

	g, err := NewGenerator(cfg, client.wrap(server.Client()))
	require.NoError(t, err)
	assert.Equal(t, "huggingface/"+generator.DefaultHuggingFaceModel, g.Name())

	answer, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, " Blue.", answer)
	assert.EqualValues(t, 120, body["max_tokens"])
	assert.Equal(t, generator.DefaultHuggingFaceModel, body["model"])
	assert.Equal(t, 1, client.requests, "the configured http client carries the request")
}

type countingClient struct {
	requests int
	next     http.RoundTripper
}

func (c *countingClient) RoundTrip(r *http.Request) (*http.Response, error) {
	c.requests++
	return c.next.RoundTrip(r)
}

func (c *countingClient) wrap(hc *http.Client) *http.Client {
	c.next = hc.Transport
	return &http.Client{Transport: c, Timeout: hc.Timeout}
}
