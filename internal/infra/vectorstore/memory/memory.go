package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dkoval/ragchat/internal/domain/document"
	"github.com/dkoval/ragchat/pkg/errors"
)

// Store keeps vectors in process. Used for local runs and tests.
type Store struct {
	mu     sync.RWMutex
	dim    int
	chunks map[uuid.UUID]document.Chunk
}

func NewStore() *Store {
	return &Store{chunks: make(map[uuid.UUID]document.Chunk)}
}

func (s *Store) EnsureIndex(_ context.Context, dim int) error {
	if dim <= 0 {
		return &errors.AppError{Code: errors.CodeInvalidInput, Message: "vector dimension must be positive"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dim != 0 && s.dim != dim {
		return &errors.AppError{Code: errors.CodeStorageError, Message: "vector dimension mismatch"}
	}
	s.dim = dim
	return nil
}

func (s *Store) Upsert(_ context.Context, chunks []document.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		if s.dim != 0 && len(chunk.Embedding) != s.dim {
			return &errors.AppError{Code: errors.CodeStorageError, Message: "vector dimension mismatch"}
		}
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

func (s *Store) Query(_ context.Context, embedding []float32, topK int, documentIDs []uuid.UUID) ([]document.ScoredChunk, error) {
	if topK <= 0 {
		return nil, nil
	}
	allowed := make(map[uuid.UUID]struct{}, len(documentIDs))
	for _, id := range documentIDs {
		allowed[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]document.ScoredChunk, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		if len(allowed) > 0 {
			if _, ok := allowed[chunk.DocumentID]; !ok {
				continue
			}
		}
		scored = append(scored, document.ScoredChunk{
			Chunk: chunk,
			Score: cosineSimilarity(embedding, chunk.Embedding),
		})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = make(map[uuid.UUID]document.Chunk)
	s.dim = 0
	return nil
}

// Len reports how many vectors are stored. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ document.VectorStore = (*Store)(nil)
