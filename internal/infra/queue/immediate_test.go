package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestImmediateQueue_JobSurvivesCallerCancellation(t *testing.T) {
	q := NewImmediateQueue(nil)

	canceled := make(chan struct{})
	got := make(chan error, 1)
	q.SetHandler(func(ctx context.Context, _ string, _ map[string]any) {
		<-canceled
		got <- ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Enqueue(ctx, "process_document", map[string]any{"document_id": "42"}))
	cancel()
	close(canceled)

	select {
	case err := <-got:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("handler never ran")
	}
}

func TestImmediateQueue_CoercesPayload(t *testing.T) {
	q := NewImmediateQueue(nil)

	got := make(chan map[string]any, 1)
	q.SetHandler(func(_ context.Context, _ string, payload map[string]any) {
		got <- payload
	})

	require.NoError(t, q.Enqueue(context.Background(), "process_document", "not a map"))

	select {
	case payload := <-got:
		require.Empty(t, payload)
	case <-time.After(5 * time.Second):
		t.Fatal("handler never ran")
	}
}

func TestImmediateQueue_NoHandlerIsANoOp(t *testing.T) {
	q := NewImmediateQueue(nil)
	require.NoError(t, q.Enqueue(context.Background(), "process_document", map[string]any{}))
}

func TestSyncQueue_RunsInline(t *testing.T) {
	ran := false
	q := NewSyncQueue(func(_ context.Context, name string, payload map[string]any) {
		ran = true
		require.Equal(t, "process_document", name)
		require.Equal(t, "42", payload["document_id"])
	})

	require.NoError(t, q.Enqueue(context.Background(), "process_document", map[string]any{"document_id": "42"}))
	require.True(t, ran)
}
