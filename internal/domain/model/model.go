package model

import (
	"context"

	"github.com/dkoval/ragchat/pkg/metrics"
)

// Provider identifies a hosted model backend.
type Provider string

const (
	ProviderAzure       Provider = "azure"
	ProviderHuggingFace Provider = "huggingface"
)

// Valid reports whether the provider name is known.
func (p Provider) Valid() bool {
	return p == ProviderAzure || p == ProviderHuggingFace
}

// Message is a provider-neutral chat turn.
type Message struct {
	Role    string
	Content string
}

// Completion is a finished model response.
type Completion struct {
	Text  string
	Usage metrics.TokenUsage
}

// Delta is one streamed fragment of a response.
type Delta struct {
	Text string
	Done bool
	Err  error
}

// ChatModel generates responses for a conversation.
type ChatModel interface {
	Complete(ctx context.Context, messages []Message) (Completion, error)
	Info() string
}

// StreamingChatModel is implemented by backends that can stream tokens.
type StreamingChatModel interface {
	ChatModel
	Stream(ctx context.Context, messages []Message) (<-chan Delta, error)
}
