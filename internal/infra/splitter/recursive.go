package splitter

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/dkoval/ragchat/internal/domain/document"
)

// Config tunes the recursive splitter.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
	// Encoding names a tiktoken encoding used for chunk token counts.
	// When empty or unavailable, token counts fall back to a
	// characters-per-token estimate.
	Encoding string
}

// Recursive splits text hierarchically: it prefers paragraph breaks,
// then line breaks, then sentence boundaries, then words, and finally
// raw characters, keeping each chunk under the configured size with a
// fixed overlap between neighbours.
type Recursive struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
	encoder      *tiktoken.Tiktoken
}

func NewRecursive(cfg Config) *Recursive {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 5
	}
	seps := cfg.Separators
	if len(seps) == 0 {
		seps = []string{"\n\n", "\n", ". ", "! ", "? ", " ", ""}
	}
	r := &Recursive{
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		separators:   seps,
	}
	if cfg.Encoding != "" {
		if enc, err := tiktoken.GetEncoding(cfg.Encoding); err == nil {
			r.encoder = enc
		}
	}
	return r
}

// Split breaks text into ordered chunk candidates. Blank chunks are
// dropped and the remaining ones are renumbered contiguously.
func (r *Recursive) Split(text string) []document.ChunkCandidate {
	pieces := r.splitText(text, r.separators)
	out := make([]document.ChunkCandidate, 0, len(pieces))
	for _, piece := range pieces {
		content := strings.TrimSpace(piece)
		if content == "" {
			continue
		}
		out = append(out, document.ChunkCandidate{
			Index:      len(out),
			Content:    content,
			TokenCount: r.countTokens(content),
		})
	}
	return out
}

func (r *Recursive) splitText(text string, separators []string) []string {
	if text == "" {
		return nil
	}

	separator := separators[len(separators)-1]
	var remaining []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	splits := splitWithSeparator(text, separator)

	var final []string
	var pending []string
	for _, s := range splits {
		if len(s) < r.chunkSize {
			pending = append(pending, s)
			continue
		}
		if len(pending) > 0 {
			final = append(final, r.mergeSplits(pending)...)
			pending = nil
		}
		if len(remaining) == 0 {
			final = append(final, s)
		} else {
			final = append(final, r.splitText(s, remaining)...)
		}
	}
	if len(pending) > 0 {
		final = append(final, r.mergeSplits(pending)...)
	}
	return final
}

// mergeSplits packs consecutive splits into chunks up to chunkSize,
// carrying chunkOverlap worth of trailing splits into the next chunk.
// Splits arrive with their separators attached, so joining is plain
// concatenation.
func (r *Recursive) mergeSplits(splits []string) []string {
	var chunks []string
	var current []string
	total := 0
	for _, s := range splits {
		if total+len(s) > r.chunkSize && len(current) > 0 {
			chunks = appendChunk(chunks, current)
			for total > r.chunkOverlap || (total+len(s) > r.chunkSize && total > 0) {
				total -= len(current[0])
				current = current[1:]
				if len(current) == 0 {
					break
				}
			}
		}
		current = append(current, s)
		total += len(s)
	}
	return appendChunk(chunks, current)
}

func appendChunk(chunks, parts []string) []string {
	joined := strings.TrimSpace(strings.Join(parts, ""))
	if joined == "" {
		return chunks
	}
	return append(chunks, joined)
}

// splitWithSeparator cuts text on separator, keeping the separator
// attached to the preceding piece so punctuation and spacing survive.
func splitWithSeparator(text, separator string) []string {
	if separator == "" {
		runes := []rune(text)
		out := make([]string, len(runes))
		for i, r := range runes {
			out[i] = string(r)
		}
		return out
	}
	parts := strings.SplitAfter(text, separator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (r *Recursive) countTokens(text string) int {
	if r.encoder != nil {
		return len(r.encoder.Encode(text, nil, nil))
	}
	if text == "" {
		return 0
	}
	return len(text)/4 + 1
}

var _ document.Splitter = (*Recursive)(nil)
