package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bull/pdf-qa-server/internal/rag"
)

// maxBodyBytes bounds the request body of POST /api/query.
const maxBodyBytes = 1 << 20

// QueryService answers one question.
type QueryService interface {
	Answer(ctx context.Context, question string) (rag.Answer, error)
}

// NewQueryHandler creates the handler for POST /api/query.
func NewQueryHandler(svc QueryService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req QueryRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		answer, err := svc.Answer(r.Context(), req.Question)
		if err != nil {
			status := statusFor(r.Context(), err)
			event := logger.Warn()
			if status >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event.Err(err).Int("status", status).Msg("Query failed")
			writeError(w, status, errorMessage(status, err))
			return
		}

		writeJSON(w, http.StatusOK, QueryResponse{Answer: answer.Text})
	}
}

// statusFor maps a service error to an HTTP status. A cancelled or expired
// request context takes precedence over the stage that observed it; a backend
// timeout under a live request is that stage's failure.
func statusFor(ctx context.Context, err error) int {
	if ctx.Err() != nil {
		return http.StatusServiceUnavailable
	}
	switch rag.KindOf(err) {
	case rag.KindValidation:
		return http.StatusBadRequest
	case rag.KindGeneration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage returns what the client sees. Server-side failures keep their
// detail in the log only.
func errorMessage(status int, err error) string {
	switch {
	case status < http.StatusInternalServerError:
		return err.Error()
	case status == http.StatusServiceUnavailable:
		return "request cancelled"
	case status == http.StatusBadGateway:
		return "answer generation failed"
	default:
		return "internal server error"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		case strings.HasPrefix(err.Error(), "json: unknown field"):
			return fmt.Errorf("invalid request body: %s", strings.TrimPrefix(err.Error(), "json: "))
		default:
			return fmt.Errorf("invalid request body: %w", err)
		}
	}
	if dec.More() {
		return errors.New("invalid request body: trailing data after JSON object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
