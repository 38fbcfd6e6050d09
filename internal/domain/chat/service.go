package chat

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dkoval/ragchat/internal/domain/document"
	"github.com/dkoval/ragchat/internal/domain/model"
	"github.com/dkoval/ragchat/pkg/errors"
)

// Config carries the orchestrator's tunables.
type Config struct {
	Personas           map[string]string
	DefaultPersona     string
	TopK               int
	HistoryTokenBudget int
	// MaxHistoryTurns caps how many past exchanges a plain conversation
	// carries, on top of the token budget.
	MaxHistoryTurns int
	// MaxPreviewChars bounds the source previews returned with answers.
	MaxPreviewChars int
}

// Service routes user turns to the active model, stuffing retrieved
// document context into the prompt when the index has content.
type Service struct {
	cfg     Config
	models  *model.Manager
	history HistoryStore
	docs    DocumentIndex
	embed   document.Embedder
	store   document.VectorStore
	logger  *slog.Logger
}

func NewService(
	cfg Config,
	models *model.Manager,
	history HistoryStore,
	docs DocumentIndex,
	embed document.Embedder,
	store document.VectorStore,
	logger *slog.Logger,
) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.MaxPreviewChars <= 0 {
		cfg.MaxPreviewChars = 240
	}
	return &Service{
		cfg:     cfg,
		models:  models,
		history: history,
		docs:    docs,
		embed:   embed,
		store:   store,
		logger:  logger,
	}
}

// Chat answers one user turn and records both sides in the session history.
func (s *Service) Chat(ctx context.Context, req Request) (*Response, error) {
	question := strings.TrimSpace(req.Message)
	if question == "" {
		return nil, &errors.AppError{Code: errors.CodeInvalidInput, Message: "message is empty"}
	}

	active, err := s.models.Active()
	if err != nil {
		return nil, err
	}

	useRAG, chunks, err := s.resolveContext(ctx, req, question)
	if err != nil {
		return nil, err
	}

	var msgs []model.Message
	system := s.systemPrompt(req)
	if useRAG {
		msgs = []model.Message{{Role: "user", Content: buildRAGPrompt(system, chunks, question)}}
	} else {
		history, herr := s.recentHistory(ctx, req.SessionID)
		if herr != nil {
			return nil, herr
		}
		msgs = buildTranscript(system, history, question)
	}

	started := time.Now()
	completion, err := active.Complete(ctx, msgs)
	if err != nil {
		return nil, errors.Wrap(errors.CodeProviderError, "chat completion failed", err)
	}
	latency := time.Since(started)

	answer := strings.TrimSpace(completion.Text)
	s.record(ctx, req.SessionID, question, answer, active.Info(), useRAG)

	s.logger.Info("chat turn completed",
		"session_id", req.SessionID,
		"rag_used", useRAG,
		"chunks", len(chunks),
		"latency_ms", latency.Milliseconds(),
	)

	return &Response{
		Answer:    answer,
		Sources:   sourcesFrom(chunks, s.cfg.MaxPreviewChars),
		Model:     active.Info(),
		Provider:  s.models.Provider(),
		RAGUsed:   useRAG,
		LatencyMs: latency.Milliseconds(),
		Usage:     completion.Usage,
	}, nil
}

// Stream answers one user turn as a channel of deltas. Models without
// native streaming get their full answer delivered as a single chunk.
func (s *Service) Stream(ctx context.Context, req Request) (<-chan StreamChunk, error) {
	question := strings.TrimSpace(req.Message)
	if question == "" {
		return nil, &errors.AppError{Code: errors.CodeInvalidInput, Message: "message is empty"}
	}

	active, err := s.models.Active()
	if err != nil {
		return nil, err
	}

	useRAG, chunks, err := s.resolveContext(ctx, req, question)
	if err != nil {
		return nil, err
	}

	var msgs []model.Message
	system := s.systemPrompt(req)
	if useRAG {
		msgs = []model.Message{{Role: "user", Content: buildRAGPrompt(system, chunks, question)}}
	} else {
		history, herr := s.recentHistory(ctx, req.SessionID)
		if herr != nil {
			return nil, herr
		}
		msgs = buildTranscript(system, history, question)
	}

	out := make(chan StreamChunk)

	streamer, ok := active.(model.StreamingChatModel)
	if !ok {
		go func() {
			defer close(out)
			completion, cerr := active.Complete(ctx, msgs)
			if cerr != nil {
				out <- StreamChunk{Error: "chat completion failed", Done: true}
				return
			}
			answer := strings.TrimSpace(completion.Text)
			s.record(ctx, req.SessionID, question, answer, active.Info(), useRAG)
			out <- StreamChunk{Delta: answer}
			out <- StreamChunk{Done: true, Sources: sourcesFrom(chunks, s.cfg.MaxPreviewChars)}
		}()
		return out, nil
	}

	deltas, err := streamer.Stream(ctx, msgs)
	if err != nil {
		return nil, errors.Wrap(errors.CodeProviderError, "chat stream failed", err)
	}

	go func() {
		defer close(out)
		var answer strings.Builder
		for d := range deltas {
			if d.Err != nil {
				s.logger.Error("chat stream interrupted", "error", d.Err)
				out <- StreamChunk{Error: "stream interrupted", Done: true}
				return
			}
			if d.Text != "" {
				answer.WriteString(d.Text)
				out <- StreamChunk{Delta: d.Text}
			}
			if d.Done {
				break
			}
		}
		s.record(ctx, req.SessionID, question, strings.TrimSpace(answer.String()), active.Info(), useRAG)
		out <- StreamChunk{Done: true, Sources: sourcesFrom(chunks, s.cfg.MaxPreviewChars)}
	}()
	return out, nil
}

// History returns the stored transcript for a session, oldest first.
func (s *Service) History(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	return s.history.ListRecent(ctx, sessionID, 0)
}

// ClearHistory drops the stored transcript for one session.
func (s *Service) ClearHistory(ctx context.Context, sessionID uuid.UUID) error {
	return s.history.Clear(ctx, sessionID)
}

// Status reports what the UI sidebar shows about the runtime.
func (s *Service) Status(ctx context.Context, sessionID uuid.UUID) (*Status, error) {
	processed, err := s.docs.ProcessedCount(ctx)
	if err != nil {
		return nil, err
	}
	count, err := s.history.Count(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(s.cfg.Personas))
	for name := range s.cfg.Personas {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Status{
		Model:          s.models.Info(),
		Provider:       s.models.Provider(),
		Initialized:    s.models.IsInitialized(),
		RAGReady:       processed > 0,
		ProcessedDocs:  processed,
		Messages:       count,
		IndexName:      s.docs.IndexName(),
		DefaultPersona: s.cfg.DefaultPersona,
		Personas:       names,
	}, nil
}

// resolveContext decides whether this turn uses retrieval and, if so,
// fetches the top matching chunks for the question.
func (s *Service) resolveContext(ctx context.Context, req Request, question string) (bool, []document.ScoredChunk, error) {
	processed, err := s.docs.ProcessedCount(ctx)
	if err != nil {
		return false, nil, err
	}
	ready := processed > 0

	useRAG := ready
	if req.UseRAG != nil {
		useRAG = *req.UseRAG
	}
	if useRAG && !ready {
		return false, nil, &errors.AppError{
			Code:    errors.CodeNotReady,
			Message: "no processed documents available for retrieval",
		}
	}
	if !useRAG {
		return false, nil, nil
	}

	vectors, err := s.embed.Embed(ctx, []string{question})
	if err != nil {
		return false, nil, errors.Wrap(errors.CodeEmbeddingError, "embed question failed", err)
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	chunks, err := s.store.Query(ctx, vectors[0], topK, nil)
	if err != nil {
		return false, nil, errors.Wrap(errors.CodeStorageError, "vector query failed", err)
	}
	return true, chunks, nil
}

// recentHistory loads the trimmed transcript for a plain conversation,
// bounded by both the token budget and the turn cap.
func (s *Service) recentHistory(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	history, err := s.history.ListRecent(ctx, sessionID, s.cfg.HistoryTokenBudget)
	if err != nil {
		return nil, err
	}
	if s.cfg.MaxHistoryTurns > 0 && len(history) > 2*s.cfg.MaxHistoryTurns {
		history = history[len(history)-2*s.cfg.MaxHistoryTurns:]
	}
	return history, nil
}

func (s *Service) systemPrompt(req Request) string {
	if custom := strings.TrimSpace(req.CustomPrompt); custom != "" {
		return custom
	}
	if prompt, ok := s.cfg.Personas[req.Persona]; ok {
		return prompt
	}
	return s.cfg.Personas[s.cfg.DefaultPersona]
}

// record appends both sides of a completed turn to the session history.
// History failures are logged, not surfaced, so an answer already paid
// for is never lost to a storage hiccup.
func (s *Service) record(ctx context.Context, sessionID uuid.UUID, question, answer, modelInfo string, ragUsed bool) {
	now := time.Now()
	turns := []Message{
		{SessionID: sessionID, Role: RoleUser, Content: question, TokenCount: estimateTokens(question), CreatedAt: now},
		{SessionID: sessionID, Role: RoleAssistant, Content: answer, Model: modelInfo, RAGUsed: ragUsed, TokenCount: estimateTokens(answer), CreatedAt: now},
	}
	for _, turn := range turns {
		if err := s.history.Append(ctx, turn); err != nil {
			s.logger.Error("history append failed", "session_id", sessionID, "error", err)
		}
	}
}

// estimateTokens approximates token counts at four characters per token.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(text)/4 + 1
}
