package main

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/bull/pdf-qa-server/internal/chunker"
	"github.com/bull/pdf-qa-server/internal/document"
)

var printChunks bool

var chunksCmd = &cobra.Command{
	Use:   "chunks",
	Short: "Load and chunk the document and print statistics",
	Long:  "Runs the loader and chunker only. No model is contacted.",
	Args:  cobra.NoArgs,
	RunE:  runChunks,
}

func init() {
	chunksCmd.Flags().BoolVar(&printChunks, "print", false, "print every chunk")
}

func runChunks(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	start := time.Now()

	pages, err := document.Load(cmd.Context(), cfg.Document.Path)
	if err != nil {
		return err
	}
	c, err := chunker.New(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	if err != nil {
		return err
	}
	chunks := c.Split(pages)

	var total, longest int
	perPage := make(map[int]int)
	for _, ch := range chunks {
		n := utf8.RuneCountInString(ch.Text)
		total += n
		longest = max(longest, n)
		perPage[ch.Page]++
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Document: %s\n", cfg.Document.Path)
	fmt.Fprintf(out, "  Pages: %d (%d without text)\n", len(pages), len(pages)-len(perPage))
	fmt.Fprintf(out, "  Chunks: %d (size %d, overlap %d)\n", len(chunks), c.Size(), c.Overlap())
	if len(chunks) > 0 {
		fmt.Fprintf(out, "  Chunk length: avg %d, max %d runes\n", total/len(chunks), longest)
	}
	fmt.Fprintf(out, "  Duration: %s\n", time.Since(start).Round(time.Millisecond))

	if printChunks {
		for _, ch := range chunks {
			fmt.Fprintf(out, "\n--- #%d page %d chunk %d offset %d\n%s\n", ch.Ordinal, ch.Page, ch.Index, ch.Offset, ch.Text)
		}
	}
	return nil
}
