package huggingface

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{ModelRepo: "google/flan-t5-large"})
	require.Error(t, err)

	_, err = NewClient(Config{APIKey: "key"})
	require.Error(t, err)
}

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/google/flan-t5-large", r.URL.Path)
		require.Equal(t, "Bearer hf-token", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "What is Go?", req["inputs"])
		opts, ok := req["options"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, true, opts["wait_for_model"])

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"generated_text": "  Go is a programming language.  "}]`)
	}))
	defer server.Close()

	client, err := NewClient(Config{
		APIKey:       "hf-token",
		BaseURL:      server.URL,
		ModelRepo:    "google/flan-t5-large",
		Temperature:  0.7,
		MaxNewTokens: 512,
	})
	require.NoError(t, err)

	text, err := client.Generate(context.Background(), "What is Go?")
	require.NoError(t, err)
	require.Equal(t, "Go is a programming language.", text)
}

func TestGenerate_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"error": "model is loading"}`)
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "hf-token", BaseURL: server.URL, ModelRepo: "google/flan-t5-large"})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=503")
}

func TestGenerate_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "hf-token", BaseURL: server.URL, ModelRepo: "google/flan-t5-large"})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "hello")
	require.Error(t, err)
}
