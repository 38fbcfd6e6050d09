package document

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// ObjectStorage abstracts blob storage (S3-compatible or in-memory).
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) (StoredObject, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// StoredObject captures persisted blob metadata.
type StoredObject struct {
	Key      string
	Size     int64
	MimeType string
	ETag     string
}

// TextExtractor pulls plain text out of an uploaded file.
type TextExtractor interface {
	Extract(data []byte) (text string, pages int, err error)
}

// Splitter breaks extracted text into overlapping chunks.
type Splitter interface {
	Split(text string) []ChunkCandidate
}

// ChunkCandidate is produced by the splitter before embedding.
type ChunkCandidate struct {
	Index      int
	Content    string
	TokenCount int
}

// Embedder produces embeddings for free form text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore owns the similarity index. Implementations wrap a managed
// vector database or keep vectors in process.
type VectorStore interface {
	// EnsureIndex prepares the index for vectors of the given dimension,
	// creating it when absent. Safe to call repeatedly.
	EnsureIndex(ctx context.Context, dim int) error
	Upsert(ctx context.Context, chunks []Chunk) error
	Query(ctx context.Context, embedding []float32, topK int, documentIDs []uuid.UUID) ([]ScoredChunk, error)
	// Reset drops all stored vectors.
	Reset(ctx context.Context) error
}

// Repository persists document metadata and stage progress.
type Repository interface {
	Create(ctx context.Context, doc Document) error
	Get(ctx context.Context, id uuid.UUID) (Document, bool, error)
	List(ctx context.Context) ([]Document, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, failureReason *string) error
	AppendStage(ctx context.Context, id uuid.UUID, event StageEvent) error
	SetMetrics(ctx context.Context, id uuid.UUID, pages, chunkCount, vectorDim int) error
	CountByStatus(ctx context.Context, status Status) (int, error)
	Clear(ctx context.Context) error
}

// FileRepository persists uploaded file metadata.
type FileRepository interface {
	Create(ctx context.Context, file FileObject) error
	FindByDocument(ctx context.Context, docID uuid.UUID) (FileObject, bool, error)
}

// JobQueue enqueues processing tasks.
type JobQueue interface {
	Enqueue(ctx context.Context, name string, payload any) error
}
