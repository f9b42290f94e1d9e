package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/pdf-qa-server/internal/rag"
)

// QueryService answers one question.
type QueryService interface {
	Answer(ctx context.Context, question string) (rag.Answer, error)
}

// makeAskHandler creates the ask_document tool handler.
// Service errors are returned as tool errors; the SDK marks the result IsError.
func makeAskHandler(svc QueryService) func(
	context.Context, *mcp.CallToolRequest, AskDocumentInput,
) (*mcp.CallToolResult, AskDocumentOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskDocumentInput) (
		*mcp.CallToolResult, AskDocumentOutput, error,
	) {
		answer, err := svc.Answer(ctx, input.Question)
		if err != nil {
			return nil, AskDocumentOutput{}, fmt.Errorf("ask_document: %w", err)
		}

		sources := make([]Source, len(answer.Sources))
		for i, s := range answer.Sources {
			sources[i] = Source{
				Page:  s.Chunk.Page,
				Chunk: s.Chunk.Index,
				Score: s.Score,
				Text:  s.Chunk.Text,
			}
		}

		return nil, AskDocumentOutput{Answer: answer.Text, Sources: sources}, nil
	}
}
