package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b Embedding) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashing_DeterministicAndNormalised(t *testing.T) {
	h := NewHashing(256)
	ctx := context.Background()

	a, err := h.Embed(ctx, "The sky is blue.")
	require.NoError(t, err)
	b, err := h.Embed(ctx, "The sky is blue.")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 256)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestHashing_SharedVocabularyIsCloser(t *testing.T) {
	h := NewHashing(1024)
	ctx := context.Background()

	q, _ := h.Embed(ctx, "What color is the sky?")
	sky, _ := h.Embed(ctx, "The sky is blue.")
	grass, _ := h.Embed(ctx, "Grass grows in meadows during spring.")

	assert.Greater(t, cosine(q, sky), cosine(q, grass))
}

func TestHashing_Edges(t *testing.T) {
	h := NewHashing(0)
	ctx := context.Background()

	_, err := h.Embed(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)

	// only stopwords and punctuation still embed
	vec, err := h.Embed(ctx, "the ?!")
	require.NoError(t, err)
	assert.Len(t, vec, DefaultHashingDimension)

	vecs, err := h.EmbedBatch(ctx, []string{"one", "two"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, "hashing/384", h.Name())
}

// stubEmbedder returns canned vectors and records what it was asked to embed.
type stubEmbedder struct {
	vecs  []Embedding
	err   error
	seen  []string
	calls int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (Embedding, error) {
	s.seen = append(s.seen, text)
	if s.err != nil {
		return nil, s.err
	}
	v := s.vecs[s.calls%len(s.vecs)]
	s.calls++
	return v, nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([]Embedding, error) {
	s.seen = append(s.seen, texts...)
	if s.err != nil {
		return nil, s.err
	}
	return s.vecs, nil
}

func (s *stubEmbedder) Name() string { return "stub" }

func TestGuard_Truncates(t *testing.T) {
	stub := &stubEmbedder{vecs: []Embedding{{1, 0}}}
	g := NewGuard(stub, 2, zerolog.Nop())

	_, err := g.Embed(context.Background(), "abcdefghijkl")
	require.NoError(t, err)
	assert.Equal(t, []string{"abcdefgh"}, stub.seen)
}

func TestGuard_RejectsInvalidVectors(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct {
		name string
		vec  Embedding
	}{
		{"empty", Embedding{}},
		{"nan", Embedding{1, nan}},
		{"inf", Embedding{float32(math.Inf(1)), 0}},
		{"zero", Embedding{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGuard(&stubEmbedder{vecs: []Embedding{tt.vec}}, 512, zerolog.Nop())
			_, err := g.Embed(context.Background(), "text")
			assert.ErrorIs(t, err, ErrInvalidVector)
		})
	}
}

func TestGuard_DimensionMismatch(t *testing.T) {
	stub := &stubEmbedder{vecs: []Embedding{{1, 0, 0}, {1, 0}}}
	g := NewGuard(stub, 512, zerolog.Nop())
	ctx := context.Background()

	_, err := g.Embed(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, 3, g.Dimension())

	_, err = g.Embed(ctx, "second")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestGuard_BatchErrors(t *testing.T) {
	ctx := context.Background()

	g := NewGuard(&stubEmbedder{vecs: []Embedding{{1}}}, 512, zerolog.Nop())
	_, err := g.EmbedBatch(ctx, []string{"a", "b"})
	assert.ErrorIs(t, err, ErrCountMismatch)

	_, err = g.EmbedBatch(ctx, []string{"a", " "})
	assert.ErrorIs(t, err, ErrEmptyInput)

	boom := errors.New("boom")
	g = NewGuard(&stubEmbedder{err: boom}, 512, zerolog.Nop())
	_, err = g.EmbedBatch(ctx, []string{"a"})
	assert.ErrorIs(t, err, boom)
}

func TestOllama_EmbedBatch(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)
		requests.Add(1)

		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)

		embs := make([][]float32, len(req.Input))
		for i, in := range req.Input {
			embs[i] = []float32{float32(len(in)), 1}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"model": req.Model, "embeddings": embs})
	}))
	defer server.Close()

	o, err := NewOllama(server.URL, "", 2, server.Client())
	require.NoError(t, err)
	assert.Equal(t, "ollama/all-minilm", o.Name())

	vecs, err := o.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, Embedding{3, 1}, vecs[2])
	assert.EqualValues(t, 2, requests.Load())
}

func TestOllama_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model \"all-minilm\" not found"}`))
	}))
	defer server.Close()

	o, err := NewOllama(server.URL, "", 0, server.Client())
	require.NoError(t, err)

	_, err = o.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func openAIEmbeddingsResponse(n int) map[string]any {
	data := make([]map[string]any, n)
	for i := range data {
		data[i] = map[string]any{"object": "embedding", "index": i, "embedding": []float64{float64(i + 1), 0.5}}
	}
	return map[string]any{
		"object": "list",
		"data":   data,
		"model":  DefaultOpenAIModel,
		"usage":  map[string]any{"prompt_tokens": n, "total_tokens": n},
	}
}

func fastBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3)
}

func TestOpenAI_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
			return
		}
		json.NewEncoder(w).Encode(openAIEmbeddingsResponse(2))
	}))
	defer server.Close()

	o, err := NewOpenAI("test-key", server.URL+"/v1/", "", 0, server.Client(), WithOpenAIBackOff(fastBackOff))
	require.NoError(t, err)

	vecs, err := o.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, Embedding{2, 0.5}, vecs[1])
	assert.EqualValues(t, 2, calls.Load())
}

func TestOpenAI_PermanentError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	o, err := NewOpenAI("test-key", server.URL+"/v1/", "", 0, server.Client(), WithOpenAIBackOff(fastBackOff))
	require.NoError(t, err)

	_, err = o.Embed(context.Background(), "a")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestOpenAI_RequiresKey(t *testing.T) {
	_, err := NewOpenAI("", "", "", 0, nil)
	assert.Error(t, err)
}

func TestHuggingFace_RequiresToken(t *testing.T) {
	_, err := NewHuggingFace("", "", "", 0)
	assert.Error(t, err)
}

// featureExtraction answers with a vector per input whose first component is
// the input's length, so order can be checked.
func featureExtraction(t *testing.T, paths chan<- string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hf-token", r.Header.Get("Authorization"))
		var body struct {
			Inputs []string `json:"inputs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		paths <- r.URL.Path

		out := make([][]float32, len(body.Inputs))
		for i, in := range body.Inputs {
			out[i] = []float32{float32(len(in)), 1, 0}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHuggingFace_Embed(t *testing.T) {
	paths := make(chan string, 1)
	server := featureExtraction(t, paths)

	h, err := NewHuggingFace("hf-token", server.URL, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "huggingface/"+DefaultHuggingFaceModel, h.Name())

	vec, err := h.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, Embedding{5, 1, 0}, vec)
	assert.Equal(t, "/pipeline/feature-extraction/"+DefaultHuggingFaceModel, <-paths)
}

func TestHuggingFace_EmbedBatch(t *testing.T) {
	paths := make(chan string, 1)
	server := featureExtraction(t, paths)

	h, err := NewHuggingFace("hf-token", server.URL, "org/encoder", time.Minute)
	require.NoError(t, err)

	vecs, err := h.EmbedBatch(context.Background(), []string{"a", "abc", "ab"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, float32(1), vecs[0][0])
	assert.Equal(t, float32(3), vecs[1][0])
	assert.Equal(t, float32(2), vecs[2][0])
	assert.Equal(t, "/pipeline/feature-extraction/org/encoder", <-paths)
}

func TestHuggingFace_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	h, err := NewHuggingFace("hf-token", server.URL, "", 50*time.Millisecond)
	require.NoError(t, err)

	start := time.Now()
	_, err = h.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestHuggingFace_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	h, err := NewHuggingFace("hf-token", server.URL, "", 0)
	require.NoError(t, err)

	_, err = h.EmbedBatch(context.Background(), []string{"a"})
	assert.Error(t, err)
}
