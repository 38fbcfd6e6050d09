package huggingface

import (
	"context"
	"strings"

	"github.com/dkoval/ragchat/internal/domain/model"
)

// ChatModel adapts the Inference API to the domain model interface. The
// hosted models are plain text generators, so the chat transcript is
// flattened into a Question/Answer prompt.
type ChatModel struct {
	client *Client
}

// NewChatModel constructs the adapter.
func NewChatModel(client *Client) *ChatModel {
	return &ChatModel{client: client}
}

// Complete renders the transcript into a prompt and generates once.
func (m *ChatModel) Complete(ctx context.Context, messages []model.Message) (model.Completion, error) {
	text, err := m.client.Generate(ctx, renderPrompt(messages))
	if err != nil {
		return model.Completion{}, err
	}
	return model.Completion{Text: text}, nil
}

// Info names the backend for status displays.
func (m *ChatModel) Info() string {
	return "HuggingFace (" + m.client.ModelRepo() + ")"
}

func renderPrompt(messages []model.Message) string {
	var builder strings.Builder
	lastUser := ""
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			builder.WriteString(msg.Content)
			builder.WriteString("\n\n")
		case "assistant":
			builder.WriteString("Answer: ")
			builder.WriteString(msg.Content)
			builder.WriteString("\n")
		case "user":
			if lastUser != "" {
				builder.WriteString("Question: ")
				builder.WriteString(lastUser)
				builder.WriteString("\n")
			}
			lastUser = msg.Content
		}
	}
	builder.WriteString("Question: ")
	builder.WriteString(lastUser)
	builder.WriteString("\nAnswer:")
	return builder.String()
}

var _ model.ChatModel = (*ChatModel)(nil)
