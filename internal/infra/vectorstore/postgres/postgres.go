package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/dkoval/ragchat/internal/domain/document"
)

// Store keeps chunk vectors in Postgres with pgvector similarity search.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureIndex creates the pgvector extension and the chunk table sized
// for the given dimension. Safe to call repeatedly as long as the
// dimension does not change.
func (s *Store) EnsureIndex(ctx context.Context, dim int) error {
	if _, err := s.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS document_chunks (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL,
			chunk_index INT NOT NULL,
			content TEXT NOT NULL,
			token_count INT NOT NULL,
			embedding vector(%d) NOT NULL
		)
	`, dim))
	return err
}

func (s *Store) Upsert(ctx context.Context, chunks []document.Chunk) error {
	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		batch.Queue(`
			INSERT INTO document_chunks (id, document_id, chunk_index, content, token_count, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE
			SET content = EXCLUDED.content, token_count = EXCLUDED.token_count, embedding = EXCLUDED.embedding
		`, chunk.ID, chunk.DocumentID, chunk.Index, chunk.Content, chunk.TokenCount, pgvector.NewVector(chunk.Embedding))
	}
	return s.pool.SendBatch(ctx, batch).Close()
}

func (s *Store) Query(ctx context.Context, embedding []float32, topK int, documentIDs []uuid.UUID) ([]document.ScoredChunk, error) {
	query := `
		SELECT id, document_id, chunk_index, content, token_count,
			(1.0 / (1.0 + (embedding <-> $1))) AS score
		FROM document_chunks
	`
	args := []any{pgvector.NewVector(embedding)}
	if len(documentIDs) > 0 {
		query += ` WHERE document_id = ANY($2)`
		args = append(args, documentIDs)
	}
	query += fmt.Sprintf(` ORDER BY (embedding <-> $1) ASC LIMIT %d`, topK)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []document.ScoredChunk
	for rows.Next() {
		var (
			chunk document.Chunk
			score float64
		)
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Index, &chunk.Content, &chunk.TokenCount, &score); err != nil {
			return nil, err
		}
		results = append(results, document.ScoredChunk{Chunk: chunk, Score: score})
	}
	return results, rows.Err()
}

// Reset drops every stored vector. A missing table counts as already
// empty, since EnsureIndex only creates it on the first upload.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE document_chunks`)
	if isUndefinedTable(err) {
		return nil
	}
	return err
}

// undefined_table, raised when TRUNCATE runs before the first upload
// has created the chunk table.
const undefinedTableCode = "42P01"

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode
}

var _ document.VectorStore = (*Store)(nil)
