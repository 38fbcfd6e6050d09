package azureopenai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		APIKey:              "test-key",
		Endpoint:            server.URL,
		Deployment:          "gpt-4",
		APIVersion:          "2024-02-01",
		EmbeddingDeployment: "text-embedding-ada-002",
		EmbeddingAPIVersion: "2024-02-01",
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{Endpoint: "https://example.openai.azure.com"})
	require.Error(t, err)

	_, err = NewClient(Config{APIKey: "key"})
	require.Error(t, err)
}

func TestCreateChatCompletion(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/openai/deployments/gpt-4/chat/completions", r.URL.Path)
		require.Equal(t, "2024-02-01", r.URL.Query().Get("api-version"))
		require.Equal(t, "test-key", r.Header.Get("api-key"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"choices": [{"message": {"role": "assistant", "content": "hello back"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
		}`)
	})

	resp, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	require.Equal(t, "hello back", resp.Choices[0].Message.Content)

	usage := resp.TokenUsage()
	require.Equal(t, 12, usage.PromptTokens)
	require.Equal(t, 16, usage.TotalTokens)
}

func TestCreateChatCompletion_ErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error": {"code": "401", "message": "bad key"}}`)
	})

	_, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=401")
}

func TestCreateChatCompletionStream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"},\"finish_reason\":\"stop\"}]}\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	})

	stream, err := client.CreateChatCompletionStream(context.Background(), ChatCompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	defer stream.Close()

	var text string
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.NotEmpty(t, chunk.Choices)
		text += chunk.Choices[0].Delta.Content
	}
	require.Equal(t, "Hello", text)
}

func TestCreateEmbedding(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/openai/deployments/text-embedding-ada-002/embeddings", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"data": [
				{"index": 1, "embedding": [0.3, 0.4]},
				{"index": 0, "embedding": [0.1, 0.2]}
			],
			"usage": {"prompt_tokens": 8, "total_tokens": 8}
		}`)
	})

	resp, err := client.CreateEmbedding(context.Background(), EmbeddingRequest{Input: []string{"one", "two"}})
	require.NoError(t, err)
	require.Len(t, resp.Data, 2)
	require.Equal(t, 1, resp.Data[0].Index)
	require.Equal(t, []float32{0.3, 0.4}, resp.Data[0].Embedding)
}

func TestCreateEmbedding_RequiresDeployment(t *testing.T) {
	client, err := NewClient(Config{APIKey: "key", Endpoint: "https://example.openai.azure.com"})
	require.NoError(t, err)

	_, err = client.CreateEmbedding(context.Background(), EmbeddingRequest{Input: []string{"x"}})
	require.Error(t, err)
}
