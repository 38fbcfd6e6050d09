package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitShortTextSingleChunk(t *testing.T) {
	s := NewRecursive(Config{ChunkSize: 100, ChunkOverlap: 20})

	chunks := s.Split("just a short note")

	require.Len(t, chunks, 1)
	require.Equal(t, 0, chunks[0].Index)
	require.Equal(t, "just a short note", chunks[0].Content)
	require.Greater(t, chunks[0].TokenCount, 0)
}

func TestSplitEmptyText(t *testing.T) {
	s := NewRecursive(Config{ChunkSize: 100, ChunkOverlap: 20})

	require.Empty(t, s.Split(""))
	require.Empty(t, s.Split("   \n\n  "))
}

func TestSplitPrefersParagraphBreaks(t *testing.T) {
	s := NewRecursive(Config{ChunkSize: 40, ChunkOverlap: 0})

	first := "First paragraph stays whole."
	second := "Second paragraph stays whole too."
	chunks := s.Split(first + "\n\n" + second)

	require.Len(t, chunks, 2)
	require.Equal(t, first, chunks[0].Content)
	require.Equal(t, second, chunks[1].Content)
}

func TestSplitRespectsChunkSize(t *testing.T) {
	s := NewRecursive(Config{ChunkSize: 50, ChunkOverlap: 10})

	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("word ")
	}
	chunks := s.Split(b.String())

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c.Content), 50)
	}
}

func TestSplitOverlapCarriesContext(t *testing.T) {
	s := NewRecursive(Config{ChunkSize: 30, ChunkOverlap: 12})

	chunks := s.Split("alpha beta gamma delta epsilon zeta eta theta")

	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		cur := strings.Fields(chunks[i].Content)
		require.NotEmpty(t, cur)
		require.Contains(t, strings.Fields(chunks[i-1].Content), cur[0])
	}
}

func TestSplitIndexesAreContiguous(t *testing.T) {
	s := NewRecursive(Config{ChunkSize: 25, ChunkOverlap: 0})

	chunks := s.Split("One sentence here. Another sentence here. A third one now.")

	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		require.Equal(t, i, c.Index)
	}
}

func TestSplitOversizedWordFallsBackToCharacters(t *testing.T) {
	s := NewRecursive(Config{ChunkSize: 10, ChunkOverlap: 0})

	chunks := s.Split(strings.Repeat("x", 35))

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c.Content), 10)
	}
}
