package docrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dkoval/ragchat/internal/domain/document"
)

// MemoryRepository keeps document metadata in process.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]document.Document
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[uuid.UUID]document.Document)}
}

func (r *MemoryRepository) Create(_ context.Context, doc document.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = doc
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (document.Document, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	return doc, ok, nil
}

func (r *MemoryRepository) List(_ context.Context) ([]document.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := make([]document.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	return docs, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, status document.Status, failureReason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil
	}
	doc.Status = status
	doc.FailureReason = failureReason
	doc.UpdatedAt = time.Now()
	r.docs[id] = doc
	return nil
}

func (r *MemoryRepository) AppendStage(_ context.Context, id uuid.UUID, event document.StageEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil
	}
	doc.Stages = append(doc.Stages, event)
	doc.UpdatedAt = time.Now()
	r.docs[id] = doc
	return nil
}

func (r *MemoryRepository) SetMetrics(_ context.Context, id uuid.UUID, pages, chunkCount, vectorDim int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil
	}
	doc.Pages = pages
	doc.ChunkCount = chunkCount
	doc.VectorDim = vectorDim
	doc.UpdatedAt = time.Now()
	r.docs[id] = doc
	return nil
}

func (r *MemoryRepository) CountByStatus(_ context.Context, status document.Status) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, doc := range r.docs {
		if doc.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = make(map[uuid.UUID]document.Document)
	return nil
}

var _ document.Repository = (*MemoryRepository)(nil)

// MemoryFileRepository keeps uploaded file metadata in process.
type MemoryFileRepository struct {
	mu    sync.RWMutex
	files map[uuid.UUID]document.FileObject
}

func NewMemoryFileRepository() *MemoryFileRepository {
	return &MemoryFileRepository{files: make(map[uuid.UUID]document.FileObject)}
}

func (r *MemoryFileRepository) Create(_ context.Context, file document.FileObject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[file.DocumentID] = file
	return nil
}

func (r *MemoryFileRepository) FindByDocument(_ context.Context, docID uuid.UUID) (document.FileObject, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	file, ok := r.files[docID]
	return file, ok, nil
}

var _ document.FileRepository = (*MemoryFileRepository)(nil)
