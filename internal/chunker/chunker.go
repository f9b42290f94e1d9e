// Package chunker splits page text into overlapping fixed-size windows.
package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bull/pdf-qa-server/internal/document"
)

// Defaults used when the configuration does not override them.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// ErrInvalidParams is returned by New for unusable size/overlap pairs.
var ErrInvalidParams = errors.New("invalid chunker parameters")

// Chunk is a window of one page's text.
type Chunk struct {
	ID      string // Deterministic UUID derived from (Page, Index)
	Ordinal int    // Position in the whole document (0, 1, 2...)
	Page    int    // 1-based source page
	Index   int    // Position within the page
	Offset  int    // Rune offset of the window within the page text
	Text    string
}

// Chunker splits pages into windows of at most size runes, with overlap
// runes shared between consecutive windows of the same page.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. It requires size > 0 and 0 <= overlap < size,
// otherwise the window would never advance.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidParams, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidParams, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the maximum chunk length in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of runes shared by consecutive chunks.
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks every page in order. Whitespace-only pages produce no chunks,
// and neither do whitespace-only windows inside a page. Index keeps counting
// every window of the page so IDs stay tied to offsets; Ordinal is dense.
func (c *Chunker) Split(pages []document.PageRecord) []Chunk {
	var chunks []Chunk
	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}

		for i, w := range c.windows([]rune(page.Text)) {
			if strings.TrimSpace(w.text) == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				ID:      ChunkID(page.Number, i),
				Ordinal: len(chunks),
				Page:    page.Number,
				Index:   i,
				Offset:  w.start,
				Text:    w.text,
			})
		}
	}
	return chunks
}

type window struct {
	start int
	text  string
}

func (c *Chunker) windows(text []rune) []window {
	n := len(text)
	var out []window
	start := 0
	for {
		end := min(start+c.size, n)
		out = append(out, window{start: start, text: string(text[start:end])})
		if end == n {
			break
		}
		start = end - c.overlap
	}
	return out
}

// ChunkID returns the stable identifier for the index-th chunk of a page.
func ChunkID(page, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("page:%d:chunk:%d", page, index))).String()
}
