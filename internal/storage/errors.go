package storage

import "errors"

var (
	ErrIndexSealed         = errors.New("index already built")
	ErrIndexNotBuilt       = errors.New("index not built")
	ErrEmptyIndex          = errors.New("no records to index")
	ErrDimensionMismatch   = errors.New("embedding dimension mismatch")
	ErrQdrantUnreachable   = errors.New("qdrant server unreachable")
	ErrPostgresUnreachable = errors.New("postgres server unreachable")
)
