package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bull/pdf-qa-server/internal/app"
)

var showContext bool

var askCmd = &cobra.Command{
	Use:   "ask QUESTION",
	Short: "Answer one question about the document",
	Long: `Indexes the configured document in-process, loads the generator and answers
a single question, exactly as POST /api/query would.

Environment variables:
  PDFQA_DOCUMENT_PATH      Path to the PDF (default: ./data/document.pdf)
  OLLAMA_HOST              Ollama server (default: http://localhost:11434)
  OPENAI_API_KEY           Required for the openai backends
  HUGGINGFACEHUB_API_TOKEN Required for the huggingface backends`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&showContext, "show-context", false, "print the retrieved chunks after the answer")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := a.Service.Answer(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, strings.TrimSpace(answer.Text))

	if showContext {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Context (%d chunks):\n", len(answer.Sources))
		for i, s := range answer.Sources {
			fmt.Fprintf(out, "\n[%d] page %d, chunk %d, score %.4f\n", i+1, s.Chunk.Page, s.Chunk.Index, s.Score)
			fmt.Fprintln(out, s.Chunk.Text)
		}
	}
	return nil
}
