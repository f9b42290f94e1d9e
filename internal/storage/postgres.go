package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/bull/pdf-qa-server/internal/embedding"
)

// PostgresIndex stores the index in a pgvector table. The table is dropped
// and recreated by Build, so each process starts from a clean index.
type PostgresIndex struct {
	seal
	pool  *pgxpool.Pool
	table string
}

// NewPostgresIndex connects to dsn, ensures the vector extension exists and
// opens a pool whose connections know the vector type.
func NewPostgresIndex(ctx context.Context, dsn, table string) (*PostgresIndex, error) {
	// The extension has to exist before the pool can register its types.
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPostgresUnreachable, err)
	}
	_, err = conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	conn.Close(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector extension: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrPostgresUnreachable, err)
	}

	return &PostgresIndex{
		pool:  pool,
		table: pgx.Identifier{table}.Sanitize(),
	}, nil
}

// Build recreates the chunk table and inserts every record in one batch.
func (p *PostgresIndex) Build(ctx context.Context, records []Record) (err error) {
	if err := p.begin(); err != nil {
		return err
	}
	dim, err := validateRecords(records)
	defer func() { p.finish(len(records), dim, err) }()
	if err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", p.table)); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	_, err = tx.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE %s (
			id          TEXT PRIMARY KEY,
			ordinal     INTEGER NOT NULL,
			page        INTEGER NOT NULL,
			chunk_index INTEGER NOT NULL,
			"offset"    INTEGER NOT NULL,
			content     TEXT NOT NULL,
			embedding   vector(%d) NOT NULL
		)`, p.table, dim))
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	insert := fmt.Sprintf(`INSERT INTO %s (id, ordinal, page, chunk_index, "offset", content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`, p.table)

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(insert,
			r.Chunk.ID,
			r.Chunk.Ordinal,
			r.Chunk.Page,
			r.Chunk.Index,
			r.Chunk.Offset,
			r.Chunk.Text,
			pgvector.NewVector(r.Embedding),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Query orders by cosine distance, then ordinal.
func (p *PostgresIndex) Query(ctx context.Context, vec embedding.Embedding, k int) ([]ScoredChunk, error) {
	_, dim, err := p.ready()
	if err != nil {
		return nil, err
	}
	if err := checkQuery(vec, dim); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, ordinal, page, chunk_index, "offset", content, 1 - (embedding <=> $1) AS similarity
		FROM %s
		ORDER BY embedding <=> $1, ordinal
		LIMIT $2`, p.table)

	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(vec), normalizeK(k))
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var hits []ScoredChunk
	for rows.Next() {
		var h ScoredChunk
		if err := rows.Scan(
			&h.Chunk.ID,
			&h.Chunk.Ordinal,
			&h.Chunk.Page,
			&h.Chunk.Index,
			&h.Chunk.Offset,
			&h.Chunk.Text,
			&h.Score,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read chunks: %w", err)
	}

	sortScored(hits)
	return hits, nil
}

// Len returns the number of indexed chunks.
func (p *PostgresIndex) Len() int { return p.len() }

// Close releases the connection pool.
func (p *PostgresIndex) Close() error {
	p.pool.Close()
	return nil
}
