package azureopenai

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/dkoval/ragchat/internal/domain/model"
)

// ChatModel adapts the Azure OpenAI client to the domain model interface.
type ChatModel struct {
	client      *Client
	deployment  string
	temperature float32
	maxTokens   int
}

// NewChatModel constructs the adapter.
func NewChatModel(client *Client, deployment string, temperature float32, maxTokens int) *ChatModel {
	return &ChatModel{
		client:      client,
		deployment:  deployment,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Complete performs a synchronous chat completion.
func (m *ChatModel) Complete(ctx context.Context, messages []model.Message) (model.Completion, error) {
	req := ChatCompletionRequest{
		Messages:    toWireMessages(messages),
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
	}
	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return model.Completion{}, err
	}
	if len(resp.Choices) == 0 {
		return model.Completion{}, errors.New("azure openai returned no choices")
	}
	return model.Completion{
		Text:  strings.TrimSpace(resp.Choices[0].Message.Content),
		Usage: resp.TokenUsage(),
	}, nil
}

// Stream performs a streaming chat completion.
func (m *ChatModel) Stream(ctx context.Context, messages []model.Message) (<-chan model.Delta, error) {
	req := ChatCompletionRequest{
		Messages:    toWireMessages(messages),
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
	}
	stream, err := m.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make(chan model.Delta)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				out <- model.Delta{Done: true}
				return
			}
			if err != nil {
				out <- model.Delta{Err: err, Done: true}
				return
			}
			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					select {
					case out <- model.Delta{Text: choice.Delta.Content}:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}

// Info names the backend for status displays.
func (m *ChatModel) Info() string {
	return "Azure OpenAI (" + m.deployment + ")"
}

func toWireMessages(messages []model.Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, msg := range messages {
		out = append(out, Message{Role: msg.Role, Content: msg.Content})
	}
	return out
}

var _ model.StreamingChatModel = (*ChatModel)(nil)
