package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/dkoval/ragchat/internal/domain/document"
	"github.com/dkoval/ragchat/internal/domain/model"
	"github.com/dkoval/ragchat/pkg/metrics"
)

// Role distinguishes conversation participants.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one stored conversation turn.
type Message struct {
	SessionID  uuid.UUID `json:"sessionId"`
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	Model      string    `json:"model,omitempty"`
	RAGUsed    bool      `json:"ragUsed,omitempty"`
	TokenCount int       `json:"tokenCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Request is one user turn submitted to the orchestrator.
type Request struct {
	SessionID    uuid.UUID
	Message      string
	Persona      string
	CustomPrompt string
	UseRAG       *bool
	TopK         int
}

// Response is the assistant turn returned to the client.
type Response struct {
	Answer    string                 `json:"answer"`
	Sources   []document.ChunkSource `json:"sources,omitempty"`
	Model     string                 `json:"model"`
	Provider  model.Provider         `json:"provider"`
	RAGUsed   bool                   `json:"ragUsed"`
	LatencyMs int64                  `json:"latencyMs"`
	Usage     metrics.TokenUsage     `json:"usage,omitempty"`
}

// StreamChunk is one SSE frame of a streamed answer.
type StreamChunk struct {
	Delta   string                 `json:"delta,omitempty"`
	Done    bool                   `json:"done,omitempty"`
	Sources []document.ChunkSource `json:"sources,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Status summarizes the runtime state shown in the UI sidebar.
type Status struct {
	Model          string         `json:"model"`
	Provider       model.Provider `json:"provider,omitempty"`
	Initialized    bool           `json:"initialized"`
	RAGReady       bool           `json:"ragReady"`
	ProcessedDocs  int            `json:"processedDocs"`
	Messages       int            `json:"messages"`
	IndexName      string         `json:"indexName,omitempty"`
	DefaultPersona string         `json:"defaultPersona"`
	Personas       []string       `json:"personas"`
}
