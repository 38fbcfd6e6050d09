package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dkoval/ragchat/internal/domain/chat"
)

// MemoryStore keeps conversation transcripts in process.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[uuid.UUID][]chat.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[uuid.UUID][]chat.Message)}
}

func (s *MemoryStore) Append(_ context.Context, msg chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg)
	return nil
}

func (s *MemoryStore) ListRecent(_ context.Context, sessionID uuid.UUID, budget int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[sessionID]
	selected := make([]chat.Message, 0, len(msgs))
	totalTokens := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		tokens := msg.TokenCount
		if tokens < 0 {
			tokens = 0
		}
		if budget > 0 && totalTokens+tokens > budget {
			break
		}
		totalTokens += tokens
		selected = append(selected, msg)
	}

	// reverse to chronological order
	for i, j := 0, len(selected)-1; i < j; i, j = i+1, j-1 {
		selected[i], selected[j] = selected[j], selected[i]
	}
	return selected, nil
}

func (s *MemoryStore) Count(_ context.Context, sessionID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages[sessionID]), nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, sessionID)
	return nil
}

var _ chat.HistoryStore = (*MemoryStore)(nil)
