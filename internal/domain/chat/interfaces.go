package chat

import (
	"context"

	"github.com/google/uuid"
)

// HistoryStore keeps per-session conversation transcripts.
type HistoryStore interface {
	Append(ctx context.Context, msg Message) error
	// ListRecent returns the newest messages whose combined token count
	// fits within budget, oldest first. A budget of zero means no limit.
	ListRecent(ctx context.Context, sessionID uuid.UUID, budget int) ([]Message, error)
	Count(ctx context.Context, sessionID uuid.UUID) (int, error)
	Clear(ctx context.Context, sessionID uuid.UUID) error
}

// DocumentIndex is the slice of the document pipeline the chat
// orchestrator needs to decide whether retrieval is available.
type DocumentIndex interface {
	ProcessedCount(ctx context.Context) (int, error)
	IndexName() string
}
