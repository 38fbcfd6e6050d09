package document

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks pipeline progress.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
)

// Document represents an uploaded PDF going through the index pipeline.
type Document struct {
	ID            uuid.UUID    `json:"id"`
	Title         string       `json:"title"`
	Filename      string       `json:"filename"`
	Status        Status       `json:"status"`
	FailureReason *string      `json:"failureReason,omitempty"`
	Pages         int          `json:"pages"`
	ChunkCount    int          `json:"chunkCount"`
	VectorDim     int          `json:"vectorDim"`
	Stages        []StageEvent `json:"stages,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// StageEvent records pipeline progress visible to the client while a
// document is being indexed.
type StageEvent struct {
	Stage  string    `json:"stage"`
	Detail string    `json:"detail"`
	At     time.Time `json:"at"`
}

// FileObject stores uploaded blob metadata.
type FileObject struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"documentId"`
	StorageKey string    `json:"storageKey"`
	SizeBytes  int64     `json:"sizeBytes"`
	MimeType   string    `json:"mimeType"`
	ETag       string    `json:"etag"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Chunk is an embedded slice of a document held by the vector store.
type Chunk struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"documentId"`
	Index      int       `json:"index"`
	Content    string    `json:"content"`
	TokenCount int       `json:"tokenCount"`
	Embedding  []float32 `json:"embedding"`
}

// ScoredChunk bundles a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// ChunkSource captures retrieval metadata returned to the client.
type ChunkSource struct {
	DocumentID uuid.UUID `json:"documentId"`
	ChunkIndex int       `json:"chunkIndex"`
	Score      float64   `json:"score"`
	Preview    string    `json:"preview"`
}
