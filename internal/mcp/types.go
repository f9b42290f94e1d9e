// Package mcp exposes the question-answering service as an MCP tool.
package mcp

// AskDocumentInput defines the input parameters for the ask_document tool.
type AskDocumentInput struct {
	// Question is answered from the indexed document.
	Question string `json:"question" jsonschema:"The question to answer from the document"`
}

// AskDocumentOutput contains the generated answer and the context it was given.
type AskDocumentOutput struct {
	// Answer is the generated text, unmodified.
	Answer string `json:"answer"`
	// Sources are the retrieved chunks, nearest first.
	Sources []Source `json:"sources"`
}

// Source is one retrieved chunk.
type Source struct {
	// Page is the 1-based page the chunk was cut from.
	Page int `json:"page"`
	// Chunk is the position of the chunk within its page.
	Chunk int `json:"chunk"`
	// Score is the cosine similarity to the question.
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}
