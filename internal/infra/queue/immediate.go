package queue

import (
	"context"

	"github.com/dkoval/ragchat/internal/domain/document"
)

// HandlerQueue supports setting a handler for job delivery.
type HandlerQueue interface {
	document.JobQueue
	SetHandler(handler Handler)
}

// Handler executes jobs synchronously or in the background.
type Handler func(ctx context.Context, name string, payload map[string]any)

// ImmediateQueue calls the handler in a goroutine on enqueue. Used when
// no broker is configured.
type ImmediateQueue struct {
	handler Handler
}

func NewImmediateQueue(handler Handler) *ImmediateQueue {
	return &ImmediateQueue{handler: handler}
}

// SetHandler replaces the handler used for queued jobs.
func (q *ImmediateQueue) SetHandler(handler Handler) {
	q.handler = handler
}

// Enqueue invokes the handler asynchronously. The job outlives the
// enqueueing request, so its context is detached from the caller's
// cancellation while keeping its values.
func (q *ImmediateQueue) Enqueue(ctx context.Context, name string, payload any) error {
	typed, ok := payload.(map[string]any)
	if !ok {
		typed = map[string]any{}
	}
	if q.handler == nil {
		return nil
	}
	go q.handler(context.WithoutCancel(ctx), name, typed)
	return nil
}

var _ document.JobQueue = (*ImmediateQueue)(nil)
var _ HandlerQueue = (*ImmediateQueue)(nil)

// SyncQueue invokes the handler inline. Test helper that keeps job
// execution deterministic.
type SyncQueue struct {
	handler Handler
}

func NewSyncQueue(handler Handler) *SyncQueue {
	return &SyncQueue{handler: handler}
}

func (q *SyncQueue) SetHandler(handler Handler) {
	q.handler = handler
}

func (q *SyncQueue) Enqueue(ctx context.Context, name string, payload any) error {
	typed, ok := payload.(map[string]any)
	if !ok {
		typed = map[string]any{}
	}
	if q.handler != nil {
		q.handler(ctx, name, typed)
	}
	return nil
}

var _ HandlerQueue = (*SyncQueue)(nil)
