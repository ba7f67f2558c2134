package store

import (
	"context"
	"fmt"
	"log"

	"github.com/Tristanchrt/local-llm/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// VectorIndexer is the vector index capability: an idempotent collection
// bootstrap, batched upserts keyed by fingerprint, and cosine similarity
// search that can return the stored vectors for reranking.
type VectorIndexer interface {
	EnsureCollection(ctx context.Context, dim int) error
	UpsertBatch(ctx context.Context, points []types.IndexPoint) error
	Search(ctx context.Context, vector []float32, limit int, withVectors bool) ([]types.Candidate, error)
}

type PostgresStore struct {
	pool       *pgxpool.Pool
	collection string
}

func NewPostgresStore(ctx context.Context, connStr, collection string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool:       pool,
		collection: collection,
	}, nil
}

// EnsureCollection creates the pgvector extension, the collection table and
// its cosine ivfflat index if they are missing. The collection name comes
// from validated config (alphanumeric), so it is safe to inline.
func (p *PostgresStore) EnsureCollection(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid embedding dimensionality: %d", dim)
	}
	query := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS %[1]s (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		content TEXT NOT NULL,
		embedding vector(%[2]d) NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_%[1]s_embedding ON %[1]s USING ivfflat (embedding vector_cosine_ops)
	WITH (lists = 100);

	CREATE INDEX IF NOT EXISTS idx_%[1]s_source ON %[1]s(source);
	`, p.collection, dim)

	_, err := p.pool.Exec(ctx, query)
	return err
}

// UpsertBatch writes one batch of points in a single round trip. Points are
// never updated in place: a conflicting id means identical content is
// already indexed, so the insert is a no-op.
func (p *PostgresStore) UpsertBatch(ctx context.Context, points []types.IndexPoint) error {
	if len(points) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (id, source, content, embedding)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO NOTHING
	`, p.collection)

	batch := &pgx.Batch{}
	for _, pt := range points {
		batch.Queue(query, pt.ID, pt.Source, pt.Text, pgvector.NewVector(pt.Vector))
	}

	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range points {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch upsert failed: %w", err)
		}
	}
	return nil
}

func (p *PostgresStore) Search(ctx context.Context, vector []float32, limit int, withVectors bool) ([]types.Candidate, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}

	cols := "id, source, content"
	if withVectors {
		cols += ", embedding"
	}
	query := fmt.Sprintf(`
	SELECT %s, 1-(embedding <=> $1) AS score
	FROM %s
	ORDER BY embedding <=> $1
	LIMIT $2
	`, cols, p.collection)

	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []types.Candidate
	for rows.Next() {
		var (
			id        string
			candidate types.Candidate
			embedding pgvector.Vector
		)
		dest := []any{&id, &candidate.Source, &candidate.Text}
		if withVectors {
			dest = append(dest, &embedding)
		}
		dest = append(dest, &candidate.Score)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if withVectors {
			candidate.Vector = embedding.Slice()
		}
		candidates = append(candidates, candidate)
	}
	return candidates, rows.Err()
}

func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
		log.Println("Postgres connection pool is closed")
	}
	return nil
}
