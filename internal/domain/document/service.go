package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/dkoval/ragchat/pkg/errors"
)

// Config drives upload and pipeline limits.
type Config struct {
	MaxFileBytes int64
	IndexName    string
}

// Service orchestrates the PDF ingestion pipeline: store the blob, extract
// text, split, embed, and upsert vectors.
type Service struct {
	cfg       Config
	docs      Repository
	files     FileRepository
	storage   ObjectStorage
	extractor TextExtractor
	splitter  Splitter
	embedder  Embedder
	store     VectorStore
	queue     JobQueue
	logger    *slog.Logger
}

// NewService constructs a Service.
func NewService(cfg Config, docs Repository, files FileRepository, storage ObjectStorage, extractor TextExtractor, splitter Splitter, embedder Embedder, store VectorStore, queue JobQueue, logger *slog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		docs:      docs,
		files:     files,
		storage:   storage,
		extractor: extractor,
		splitter:  splitter,
		embedder:  embedder,
		store:     store,
		queue:     queue,
		logger:    logger.With("component", "document.service"),
	}
}

// UploadRequest captures a multipart submission.
type UploadRequest struct {
	Filename string
	Title    string
	MimeType string
	Content  []byte
}

// UploadResponse returns document metadata after enqueueing.
type UploadResponse struct {
	Document Document `json:"document"`
}

// Upload persists the document metadata, stores the blob, and enqueues processing.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (UploadResponse, error) {
	if len(req.Content) == 0 {
		return UploadResponse{}, apperrors.Wrap(apperrors.CodeInvalidInput, "file content cannot be empty", nil)
	}
	if s.cfg.MaxFileBytes > 0 && int64(len(req.Content)) > s.cfg.MaxFileBytes {
		return UploadResponse{}, apperrors.Wrap(apperrors.CodeInvalidInput, "file exceeds maximum allowed size", nil)
	}
	if !looksLikePDF(req.Content) {
		return UploadResponse{}, apperrors.Wrap(apperrors.CodeInvalidInput, "only PDF uploads are supported", nil)
	}
	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		filename = "document.pdf"
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = filename
	}
	now := time.Now()
	doc := Document{
		ID:        uuid.New(),
		Title:     title,
		Filename:  filename,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return UploadResponse{}, apperrors.Wrap(apperrors.CodeStorageError, "failed to persist document", err)
	}

	mime := req.MimeType
	if mime == "" {
		mime = http.DetectContentType(req.Content)
	}
	storageKey := fmt.Sprintf("uploads/%s/%s", doc.ID.String(), sanitizeFilename(filename))
	obj, err := s.storage.Put(ctx, storageKey, req.Content, mime)
	if err != nil {
		return UploadResponse{}, apperrors.Wrap(apperrors.CodeStorageError, "failed to store file", err)
	}

	file := FileObject{
		ID:         uuid.New(),
		DocumentID: doc.ID,
		StorageKey: obj.Key,
		SizeBytes:  obj.Size,
		MimeType:   obj.MimeType,
		ETag:       obj.ETag,
		CreatedAt:  now,
	}
	if err := s.files.Create(ctx, file); err != nil {
		return UploadResponse{}, apperrors.Wrap(apperrors.CodeStorageError, "failed to persist file metadata", err)
	}

	if s.queue != nil {
		payload := map[string]any{"document_id": doc.ID.String()}
		if err := s.queue.Enqueue(ctx, "process_document", payload); err != nil {
			s.logger.Warn("enqueue process_document failed", "error", err)
		}
	}

	return UploadResponse{Document: doc}, nil
}

// Process runs the full ingestion pipeline for a stored document.
func (s *Service) Process(ctx context.Context, docID uuid.UUID) error {
	s.logger.Info("process_document start", "document_id", docID)
	doc, found, err := s.docs.Get(ctx, docID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "failed to load document", err)
	}
	if !found {
		return apperrors.Wrap(apperrors.CodeNotFound, "document not found", nil)
	}
	if doc.Status == StatusProcessed {
		return nil
	}

	if err := s.docs.UpdateStatus(ctx, docID, StatusProcessing, nil); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "failed to update status", err)
	}

	raw, err := s.loadBlob(ctx, docID)
	if err != nil {
		return s.fail(ctx, docID, "failed to read stored file", err)
	}

	s.stage(ctx, docID, "extract", "reading PDF document")
	text, pages, err := s.extractor.Extract(raw)
	if err != nil {
		return s.fail(ctx, docID, "text extraction failed", err)
	}
	s.stage(ctx, docID, "extract", fmt.Sprintf("extracted %d pages", pages))

	s.stage(ctx, docID, "split", "splitting text into chunks")
	candidates := s.splitter.Split(text)
	if len(candidates) == 0 {
		return s.fail(ctx, docID, "no text chunks were created", nil)
	}
	s.stage(ctx, docID, "split", fmt.Sprintf("created %d chunks", len(candidates)))

	// Probe with the first chunk so index creation knows the dimension.
	s.stage(ctx, docID, "embed", "testing embeddings")
	probe, err := s.embedder.Embed(ctx, []string{candidates[0].Content})
	if err != nil || len(probe) == 0 || len(probe[0]) == 0 {
		return s.fail(ctx, docID, "embedding probe failed", err)
	}
	dim := len(probe[0])
	s.stage(ctx, docID, "embed", fmt.Sprintf("vector dimension %d", dim))

	s.stage(ctx, docID, "index", "preparing vector index "+s.cfg.IndexName)
	if err := s.store.EnsureIndex(ctx, dim); err != nil {
		return s.fail(ctx, docID, "vector index setup failed", err)
	}

	texts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		texts = append(texts, c.Content)
	}
	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return s.fail(ctx, docID, "embedding failed", err)
	}
	if len(embeddings) != len(candidates) {
		return s.fail(ctx, docID, "embedding count mismatch", nil)
	}

	chunks := make([]Chunk, 0, len(candidates))
	for i, c := range candidates {
		embedding := make([]float32, len(embeddings[i]))
		copy(embedding, embeddings[i])
		chunks = append(chunks, Chunk{
			ID:         uuid.New(),
			DocumentID: docID,
			Index:      c.Index,
			Content:    c.Content,
			TokenCount: c.TokenCount,
			Embedding:  embedding,
		})
	}

	s.stage(ctx, docID, "upsert", fmt.Sprintf("uploading %d vectors", len(chunks)))
	if err := s.store.Upsert(ctx, chunks); err != nil {
		return s.fail(ctx, docID, "vector upsert failed", err)
	}

	if err := s.docs.SetMetrics(ctx, docID, pages, len(chunks), dim); err != nil {
		s.logger.Warn("failed to record document metrics", "error", err)
	}
	if err := s.docs.UpdateStatus(ctx, docID, StatusProcessed, nil); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "failed to finalize document", err)
	}
	s.stage(ctx, docID, "done", fmt.Sprintf("processed %d chunks from %d pages", len(chunks), pages))
	s.logger.Info("process_document complete", "document_id", docID, "pages", pages, "chunks", len(chunks))
	return nil
}

func (s *Service) loadBlob(ctx context.Context, docID uuid.UUID) ([]byte, error) {
	file, found, err := s.files.FindByDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("file not found for document %s", docID)
	}
	reader, err := s.storage.Get(ctx, file.StorageKey)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (s *Service) fail(ctx context.Context, docID uuid.UUID, reason string, err error) error {
	_ = s.docs.UpdateStatus(ctx, docID, StatusFailed, &reason)
	s.stage(ctx, docID, "failed", reason)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, reason, err)
	}
	return apperrors.Wrap(apperrors.CodeInvalidInput, reason, nil)
}

func (s *Service) stage(ctx context.Context, docID uuid.UUID, stage, detail string) {
	event := StageEvent{Stage: stage, Detail: detail, At: time.Now()}
	if err := s.docs.AppendStage(ctx, docID, event); err != nil {
		s.logger.Warn("failed to append stage event", "stage", stage, "error", err)
	}
}

// Get fetches a single document.
func (s *Service) Get(ctx context.Context, docID uuid.UUID) (Document, error) {
	doc, found, err := s.docs.Get(ctx, docID)
	if err != nil {
		return Document{}, apperrors.Wrap(apperrors.CodeStorageError, "failed to fetch document", err)
	}
	if !found {
		return Document{}, apperrors.Wrap(apperrors.CodeNotFound, "document not found", nil)
	}
	return doc, nil
}

// List returns all known documents.
func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.docs.List(ctx)
}

// ProcessedCount reports how many documents are retrievable.
func (s *Service) ProcessedCount(ctx context.Context) (int, error) {
	return s.docs.CountByStatus(ctx, StatusProcessed)
}

// IndexName reports the vector index documents are written to.
func (s *Service) IndexName() string {
	return s.cfg.IndexName
}

// Reset drops document metadata and stored vectors.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "failed to reset vector store", err)
	}
	if err := s.docs.Clear(ctx); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "failed to clear documents", err)
	}
	return nil
}

func looksLikePDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" {
		return "file"
	}
	return name
}
