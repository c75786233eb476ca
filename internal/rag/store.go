package rag

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"returns-copilot/internal/core"
)

// Store is the vector-index boundary of the retriever. Implementations
// may fail (backend unreachable); the retriever catches that and falls
// back to the filesystem corpus.
type Store interface {
	// SimilaritySearchWithScore returns up to k chunks ordered by
	// distance, lower meaning closer.
	SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]core.PolicyChunk, error)
}

// PGVectorStore keeps the policy index in Postgres with the pgvector
// extension, searched by cosine distance.
type PGVectorStore struct {
	pool     *pgxpool.Pool
	embedder Embedder
}

// NewPGVectorStore constructs a Store over the policy_chunks table.
func NewPGVectorStore(pool *pgxpool.Pool, embedder Embedder) *PGVectorStore {
	return &PGVectorStore{pool: pool, embedder: embedder}
}

// vectorLiteral renders a float slice as a pgvector input literal.
func vectorLiteral(v []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}

func (s *PGVectorStore) SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]core.PolicyChunk, error) {
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for query")
	}

	rows, err := s.pool.Query(ctx, `
		SELECT content, source, embedding <=> $1::vector AS distance
		FROM policy_chunks
		ORDER BY distance
		LIMIT $2
	`, vectorLiteral(vecs[0]), k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var chunks []core.PolicyChunk
	for rows.Next() {
		var c core.PolicyChunk
		if err := rows.Scan(&c.Content, &c.Source, &c.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan policy chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read policy chunks: %w", err)
	}
	return chunks, nil
}

// Upsert replaces all chunks for a source file. Ingestion is
// append-only per source: re-ingesting a file swaps its chunks in one
// transaction.
func (s *PGVectorStore) Upsert(ctx context.Context, source string, contents []string, embeddings [][]float64) error {
	if len(contents) != len(embeddings) {
		return fmt.Errorf("got %d contents but %d embeddings", len(contents), len(embeddings))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin ingest transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM policy_chunks WHERE source = $1", source); err != nil {
		return fmt.Errorf("failed to clear chunks for %s: %w", source, err)
	}

	for i, content := range contents {
		_, err := tx.Exec(ctx, `
			INSERT INTO policy_chunks (source, content, embedding)
			VALUES ($1, $2, $3::vector)
		`, source, content, vectorLiteral(embeddings[i]))
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d of %s: %w", i, source, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit ingest for %s: %w", source, err)
	}
	return nil
}
