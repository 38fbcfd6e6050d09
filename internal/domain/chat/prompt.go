package chat

import (
	"fmt"
	"strings"

	"github.com/dkoval/ragchat/internal/domain/document"
	"github.com/dkoval/ragchat/internal/domain/model"
)

const ragInstructions = "Use the following pieces of context to answer the question at the end.\n" +
	"If you don't know the answer based on the context, just say that you don't know, " +
	"don't try to make up an answer."

// buildRAGPrompt stuffs the retrieved chunks into a single user turn.
func buildRAGPrompt(system string, chunks []document.ScoredChunk, question string) string {
	var b strings.Builder
	if system != "" {
		b.WriteString(system)
		b.WriteString("\n\n")
	}
	b.WriteString(ragInstructions)
	b.WriteString("\n\nContext:\n")
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(c.Chunk.Content)
	}
	fmt.Fprintf(&b, "\n\nQuestion: %s\n\nAnswer:", question)
	return b.String()
}

// buildTranscript converts stored history plus the current question into
// model messages, with the persona prompt as the system turn.
func buildTranscript(system string, history []Message, question string) []model.Message {
	msgs := make([]model.Message, 0, len(history)+2)
	if system != "" {
		msgs = append(msgs, model.Message{Role: "system", Content: system})
	}
	for _, h := range history {
		role := "user"
		if h.Role == RoleAssistant {
			role = "assistant"
		}
		msgs = append(msgs, model.Message{Role: role, Content: h.Content})
	}
	msgs = append(msgs, model.Message{Role: "user", Content: question})
	return msgs
}

// sourcesFrom trims retrieved chunks down to the preview form returned
// alongside answers.
func sourcesFrom(chunks []document.ScoredChunk, previewChars int) []document.ChunkSource {
	if len(chunks) == 0 {
		return nil
	}
	out := make([]document.ChunkSource, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, document.ChunkSource{
			DocumentID: c.Chunk.DocumentID,
			ChunkIndex: c.Chunk.Index,
			Score:      c.Score,
			Preview:    truncateRunes(c.Chunk.Content, previewChars),
		})
	}
	return out
}

// truncateRunes shortens s to at most n runes, marking the cut with an
// ellipsis. Cutting on rune boundaries keeps multi-byte text valid UTF-8.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	seen := 0
	for i := range s {
		if seen == n {
			return s[:i] + "..."
		}
		seen++
	}
	return s
}
