// Package api serves the question-answering HTTP interface.
package api

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Question string `json:"question"`
}

// QueryResponse is returned on success. The answer is the generated text, unmodified.
type QueryResponse struct {
	Answer string `json:"answer"`
}

// ErrorResponse is returned for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Chunks    int    `json:"chunks"`
	Embedder  string `json:"embedder"`
	Generator string `json:"generator"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}
