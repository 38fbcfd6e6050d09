package docrepo

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dkoval/ragchat/internal/domain/document"
)

// PostgresRepository persists document metadata in Postgres. Stage
// events live in a jsonb column next to the row they describe.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, doc document.Document) error {
	stages, err := json.Marshal(doc.Stages)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO documents (id, title, filename, status, failure_reason, pages, chunk_count, vector_dim, stages, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, doc.ID, doc.Title, doc.Filename, doc.Status, doc.FailureReason, doc.Pages, doc.ChunkCount, doc.VectorDim, stages, doc.CreatedAt, doc.UpdatedAt)
	return err
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (document.Document, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, title, filename, status, failure_reason, pages, chunk_count, vector_dim, stages, created_at, updated_at
		FROM documents
		WHERE id = $1
		LIMIT 1
	`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return document.Document{}, false, nil
		}
		return document.Document{}, false, err
	}
	return doc, true, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]document.Document, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, filename, status, failure_reason, pages, chunk_count, vector_dim, stages, created_at, updated_at
		FROM documents
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status document.Status, failureReason *string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE documents
		SET status = $1, failure_reason = $2, updated_at = NOW()
		WHERE id = $3
	`, status, failureReason, id)
	return err
}

func (r *PostgresRepository) AppendStage(ctx context.Context, id uuid.UUID, event document.StageEvent) error {
	encoded, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE documents
		SET stages = COALESCE(stages, '[]'::jsonb) || $1::jsonb, updated_at = NOW()
		WHERE id = $2
	`, encoded, id)
	return err
}

func (r *PostgresRepository) SetMetrics(ctx context.Context, id uuid.UUID, pages, chunkCount, vectorDim int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE documents
		SET pages = $1, chunk_count = $2, vector_dim = $3, updated_at = NOW()
		WHERE id = $4
	`, pages, chunkCount, vectorDim, id)
	return err
}

func (r *PostgresRepository) CountByStatus(ctx context.Context, status document.Status) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE status = $1`, status).Scan(&count)
	return count, err
}

// Clear drops every document row. A missing table counts as already
// empty so reset works on a fresh database.
func (r *PostgresRepository) Clear(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `TRUNCATE documents`)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
		return nil
	}
	return err
}

func scanDocument(row pgx.Row) (document.Document, error) {
	var (
		doc           document.Document
		failureReason *string
		stagesRaw     []byte
	)
	if err := row.Scan(&doc.ID, &doc.Title, &doc.Filename, &doc.Status, &failureReason,
		&doc.Pages, &doc.ChunkCount, &doc.VectorDim, &stagesRaw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return document.Document{}, err
	}
	doc.FailureReason = failureReason
	if len(stagesRaw) > 0 {
		_ = json.Unmarshal(stagesRaw, &doc.Stages)
	}
	return doc, nil
}

var _ document.Repository = (*PostgresRepository)(nil)

// PostgresFileRepository persists uploaded file metadata.
type PostgresFileRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresFileRepository(pool *pgxpool.Pool) *PostgresFileRepository {
	return &PostgresFileRepository{pool: pool}
}

func (r *PostgresFileRepository) Create(ctx context.Context, file document.FileObject) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO file_objects (id, document_id, storage_key, size_bytes, mime_type, etag, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, file.ID, file.DocumentID, file.StorageKey, file.SizeBytes, file.MimeType, file.ETag, file.CreatedAt)
	return err
}

func (r *PostgresFileRepository) FindByDocument(ctx context.Context, docID uuid.UUID) (document.FileObject, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, document_id, storage_key, size_bytes, mime_type, etag, created_at
		FROM file_objects
		WHERE document_id = $1
		LIMIT 1
	`, docID)
	var file document.FileObject
	if err := row.Scan(&file.ID, &file.DocumentID, &file.StorageKey, &file.SizeBytes, &file.MimeType, &file.ETag, &file.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return document.FileObject{}, false, nil
		}
		return document.FileObject{}, false, err
	}
	return file, true, nil
}

var _ document.FileRepository = (*PostgresFileRepository)(nil)
