package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Chunker.ChunkSize)
	assert.Equal(t, 200, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, 4, cfg.Index.TopK)
	assert.Equal(t, 300, cfg.Generator.MaxTokens)
	assert.Equal(t, IndexMemory, cfg.Index.Backend)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
document:
  path: /srv/manual.pdf
chunker:
  chunk_size: 500
  chunk_overlap: 50
embedder:
  backend: hashing
  dimension: 256
generator:
  backend: openai
  model: gpt-3.5-turbo-instruct
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/manual.pdf", cfg.Document.Path)
	assert.Equal(t, 500, cfg.Chunker.ChunkSize)
	assert.Equal(t, 50, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, BackendHashing, cfg.Embedder.Backend)
	assert.Equal(t, 256, cfg.Embedder.Dimension)
	assert.Equal(t, BackendOpenAI, cfg.Generator.Backend)
	// untouched sections keep their defaults
	assert.Equal(t, 300, cfg.Generator.MaxTokens)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.Host)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("PDFQA_TOP_K", "2")
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")
	t.Setenv("PORT", "9090")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Index.TopK)
	assert.Equal(t, "http://gpu-box:11434", cfg.Ollama.Host)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunker: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap equal to size", func(c *Config) { c.Chunker.ChunkOverlap = c.Chunker.ChunkSize }},
		{"overlap larger than size", func(c *Config) { c.Chunker.ChunkOverlap = c.Chunker.ChunkSize + 1 }},
		{"negative overlap", func(c *Config) { c.Chunker.ChunkOverlap = -1 }},
		{"zero chunk size", func(c *Config) { c.Chunker.ChunkSize = 0 }},
		{"zero top k", func(c *Config) { c.Index.TopK = 0 }},
		{"unknown embedder", func(c *Config) { c.Embedder.Backend = "faiss" }},
		{"unknown index", func(c *Config) { c.Index.Backend = "faiss" }},
		{"unknown generator", func(c *Config) { c.Generator.Backend = "hashing" }},
		{"zero max tokens", func(c *Config) { c.Generator.MaxTokens = 0 }},
		{"empty document path", func(c *Config) { c.Document.Path = "" }},
		{"hashing without dimension", func(c *Config) {
			c.Embedder.Backend = BackendHashing
			c.Embedder.Dimension = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	assert.NoError(t, Default().Validate())
}
