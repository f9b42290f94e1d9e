package api

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker probes the generator backend.
// app.App implements this via its CheckGenerator method.
type HealthChecker interface {
	CheckGenerator(ctx context.Context) error
}

// HealthInfo is the static part of the health response.
type HealthInfo struct {
	Chunks    int
	Embedder  string
	Generator string
}

// NewHealthHandler creates an HTTP handler for the /health endpoint.
// It returns 503 when the generator backend cannot be reached.
func NewHealthHandler(checker HealthChecker, info HealthInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:    "healthy",
			Chunks:    info.Chunks,
			Embedder:  info.Embedder,
			Generator: info.Generator,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		if err := checker.CheckGenerator(ctx); err != nil {
			response.Status = "unhealthy"
			response.Error = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, response)
			return
		}
		writeJSON(w, http.StatusOK, response)
	}
}
