package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dkoval/ragchat/internal/domain/document"
)

func seedChunk(docID uuid.UUID, index int, embedding []float32) document.Chunk {
	return document.Chunk{
		ID:         uuid.New(),
		DocumentID: docID,
		Index:      index,
		Content:    "chunk",
		Embedding:  embedding,
	}
}

func TestEnsureIndex_DimensionMismatch(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.EnsureIndex(ctx, 3))
	require.NoError(t, store.EnsureIndex(ctx, 3))
	require.Error(t, store.EnsureIndex(ctx, 4))
	require.Error(t, store.EnsureIndex(ctx, 0))
}

func TestQuery_RanksByCosineSimilarity(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.EnsureIndex(ctx, 2))

	docID := uuid.New()
	aligned := seedChunk(docID, 0, []float32{1, 0})
	diagonal := seedChunk(docID, 1, []float32{1, 1})
	orthogonal := seedChunk(docID, 2, []float32{0, 1})
	require.NoError(t, store.Upsert(ctx, []document.Chunk{orthogonal, diagonal, aligned}))

	results, err := store.Query(ctx, []float32{1, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, aligned.ID, results[0].Chunk.ID)
	require.Equal(t, diagonal.ID, results[1].Chunk.ID)
	require.Equal(t, orthogonal.ID, results[2].Chunk.ID)
	require.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestQuery_RespectsTopK(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	docID := uuid.New()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Upsert(ctx, []document.Chunk{seedChunk(docID, i, []float32{1, float32(i)})}))
	}

	results, err := store.Query(ctx, []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	results, err = store.Query(ctx, []float32{1, 0}, 0, nil)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestQuery_FiltersByDocument(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	wanted := uuid.New()
	other := uuid.New()
	require.NoError(t, store.Upsert(ctx, []document.Chunk{
		seedChunk(wanted, 0, []float32{1, 0}),
		seedChunk(other, 0, []float32{1, 0}),
	}))

	results, err := store.Query(ctx, []float32{1, 0}, 10, []uuid.UUID{wanted})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, wanted, results[0].Chunk.DocumentID)
}

func TestUpsert_RejectsWrongDimension(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.EnsureIndex(ctx, 3))

	err := store.Upsert(ctx, []document.Chunk{seedChunk(uuid.New(), 0, []float32{1, 2})})
	require.Error(t, err)
}

func TestReset_ClearsVectorsAndDimension(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.EnsureIndex(ctx, 2))
	require.NoError(t, store.Upsert(ctx, []document.Chunk{seedChunk(uuid.New(), 0, []float32{1, 0})}))
	require.Equal(t, 1, store.Len())

	require.NoError(t, store.Reset(ctx))
	require.Equal(t, 0, store.Len())
	require.NoError(t, store.EnsureIndex(ctx, 7))
}
