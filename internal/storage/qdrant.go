package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/pdf-qa-server/internal/chunker"
	"github.com/bull/pdf-qa-server/internal/embedding"
)

// upsertBatchSize is the number of points sent per upsert request.
const upsertBatchSize = 100

// QdrantIndex stores the index in a Qdrant collection. The collection is
// dropped and recreated by Build, so each process starts from a clean index.
type QdrantIndex struct {
	seal
	client     *qdrant.Client
	collection string
}

// NewQdrantIndex creates a Qdrant client with health validation.
// It performs a health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantIndex(ctx context.Context, host string, port int, collection string) (*QdrantIndex, error) {
	// Create Qdrant client using gRPC
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	idx := &QdrantIndex{
		client:     client,
		collection: collection,
	}

	if err := idx.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return idx, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (q *QdrantIndex) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error { return q.Health(ctx) }, backoff.WithContext(b, ctx))
}

// Health performs a single health check against Qdrant.
func (q *QdrantIndex) Health(ctx context.Context) error {
	result, err := q.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// Build recreates the collection with cosine distance and upserts every record.
func (q *QdrantIndex) Build(ctx context.Context, records []Record) (err error) {
	if err := q.begin(); err != nil {
		return err
	}
	dim, err := validateRecords(records)
	defer func() { q.finish(len(records), dim, err) }()
	if err != nil {
		return err
	}

	if err := q.recreateCollection(ctx, dim); err != nil {
		return err
	}

	for i := 0; i < len(records); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(records))

		points := make([]*qdrant.PointStruct, 0, end-i)
		for _, r := range records[i:end] {
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(r.Chunk.ID),
				Vectors: qdrant.NewVectors(r.Embedding...),
				Payload: qdrant.NewValueMap(map[string]any{
					"ordinal":     r.Chunk.Ordinal,
					"page":        r.Chunk.Page,
					"chunk_index": r.Chunk.Index,
					"offset":      r.Chunk.Offset,
					"content":     r.Chunk.Text,
				}),
			})
		}

		if err := q.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

func (q *QdrantIndex) recreateCollection(ctx context.Context, dim int) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		if err := q.client.DeleteCollection(ctx, q.collection); err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (q *QdrantIndex) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

// Query performs an exact cosine search. The full ranking is fetched so
// equal scores at the k boundary are resolved by ordinal, not by point ID.
func (q *QdrantIndex) Query(ctx context.Context, vec embedding.Embedding, k int) ([]ScoredChunk, error) {
	count, dim, err := q.ready()
	if err != nil {
		return nil, err
	}
	if err := checkQuery(vec, dim); err != nil {
		return nil, err
	}

	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          qdrant.PtrOf(uint64(count)),
		Params:         &qdrant.SearchParams{Exact: qdrant.PtrOf(true)},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	hits := make([]ScoredChunk, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		hits = append(hits, ScoredChunk{
			Chunk: chunker.Chunk{
				ID:      result.Id.GetUuid(),
				Ordinal: int(payload["ordinal"].GetIntegerValue()),
				Page:    int(payload["page"].GetIntegerValue()),
				Index:   int(payload["chunk_index"].GetIntegerValue()),
				Offset:  int(payload["offset"].GetIntegerValue()),
				Text:    payload["content"].GetStringValue(),
			},
			Score: float64(result.Score),
		})
	}
	sortScored(hits)

	return hits[:min(normalizeK(k), len(hits))], nil
}

// Len returns the number of indexed chunks.
func (q *QdrantIndex) Len() int { return q.len() }

// Close closes the Qdrant client connection.
func (q *QdrantIndex) Close() error {
	if q.client != nil {
		return q.client.Close()
	}
	return nil
}
