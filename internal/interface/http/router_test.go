package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkoval/ragchat/internal/domain/chat"
	"github.com/dkoval/ragchat/internal/domain/document"
	"github.com/dkoval/ragchat/internal/domain/model"
	"github.com/dkoval/ragchat/internal/domain/session"
	"github.com/dkoval/ragchat/internal/infra/config"
	"github.com/dkoval/ragchat/internal/infra/docrepo"
	"github.com/dkoval/ragchat/internal/infra/embedder"
	"github.com/dkoval/ragchat/internal/infra/history"
	"github.com/dkoval/ragchat/internal/infra/pdfext"
	"github.com/dkoval/ragchat/internal/infra/queue"
	"github.com/dkoval/ragchat/internal/infra/splitter"
	"github.com/dkoval/ragchat/internal/infra/storage"
	vmemory "github.com/dkoval/ragchat/internal/infra/vectorstore/memory"
)

type stubModel struct {
	reply string
}

func (m *stubModel) Complete(_ context.Context, _ []model.Message) (model.Completion, error) {
	return model.Completion{Text: m.reply}, nil
}

func (m *stubModel) Info() string { return "stub model" }

func (m *stubModel) Stream(_ context.Context, _ []model.Message) (<-chan model.Delta, error) {
	out := make(chan model.Delta, 2)
	out <- model.Delta{Text: m.reply}
	out <- model.Delta{Done: true}
	close(out)
	return out, nil
}

func newTestServer(t *testing.T) *http.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	docSvc := document.NewService(
		document.Config{MaxFileBytes: 1 << 20, IndexName: "test-index"},
		docrepo.NewMemoryRepository(),
		docrepo.NewMemoryFileRepository(),
		storage.NewMemoryStorage(),
		pdfext.NewExtractor(),
		splitter.NewRecursive(splitter.Config{ChunkSize: 200, ChunkOverlap: 20}),
		embedder.NewDeterministicEmbedder(16),
		vmemory.NewStore(),
		queue.NewImmediateQueue(nil),
		logger,
	)

	models := model.NewManager(map[model.Provider]model.Factory{
		model.ProviderAzure: func() (model.ChatModel, error) {
			return &stubModel{reply: "stub answer"}, nil
		},
	})

	chatSvc := chat.NewService(
		chat.Config{
			Personas:           map[string]string{"Default": "You are a helpful AI assistant."},
			DefaultPersona:     "Default",
			TopK:               3,
			HistoryTokenBudget: 1000,
		},
		models,
		history.NewMemoryStore(),
		docSvc,
		embedder.NewDeterministicEmbedder(16),
		vmemory.NewStore(),
		logger,
	)

	sessionSvc := session.NewService(session.Config{Secret: "router-test-secret", TokenTTL: time.Hour}, logger)
	handler := NewHandler(chatSvc, docSvc, sessionSvc, models, logger)
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
	}
	return NewRouter(cfg, handler, sessionSvc)
}

func doRequest(server *http.Server, method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func sessionToken(t *testing.T, server *http.Server) string {
	t.Helper()
	rec := doRequest(server, http.MethodPost, "/api/v1/sessions", "", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var sess session.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	require.NotEmpty(t, sess.Token)
	return sess.Token
}

func TestRouter_Healthz(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(server, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_ChatRequiresSession(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(server, http.MethodPost, "/api/v1/chat", "", `{"message":"hi"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "unauthorized", errBody["error"]["code"])
}

func TestRouter_ActivateUnknownProvider(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(server, http.MethodPost, "/api/v1/models/activate", "", `{"provider":"nope"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_ChatBeforeModelActivation(t *testing.T) {
	server := newTestServer(t)
	token := sessionToken(t, server)

	rec := doRequest(server, http.MethodPost, "/api/v1/chat", token, `{"message":"hi"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "not_ready", errBody["error"]["code"])
}

func TestRouter_ChatFlow(t *testing.T) {
	server := newTestServer(t)
	token := sessionToken(t, server)

	rec := doRequest(server, http.MethodPost, "/api/v1/models/activate", "", `{"provider":"azure"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(server, http.MethodPost, "/api/v1/chat", token, `{"message":"hello there"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chat.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "stub answer", resp.Answer)
	require.False(t, resp.RAGUsed)

	rec = doRequest(server, http.MethodGet, "/api/v1/history", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hist struct {
		Messages []chat.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	require.Len(t, hist.Messages, 2)
	require.Equal(t, chat.RoleUser, hist.Messages[0].Role)
	require.Equal(t, chat.RoleAssistant, hist.Messages[1].Role)

	rec = doRequest(server, http.MethodDelete, "/api/v1/history", token, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_ChatStream(t *testing.T) {
	server := newTestServer(t)
	token := sessionToken(t, server)

	rec := doRequest(server, http.MethodPost, "/api/v1/models/activate", "", `{"provider":"azure"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(server, http.MethodPost, "/api/v1/chat/stream", token, `{"message":"stream me"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	payload := strings.TrimSpace(rec.Body.String())
	frames := strings.Split(payload, "\n\n")
	require.GreaterOrEqual(t, len(frames), 2)

	var first chat.StreamChunk
	require.True(t, strings.HasPrefix(frames[0], "data: "))
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frames[0], "data: ")), &first))
	require.Equal(t, "stub answer", first.Delta)

	var last chat.StreamChunk
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frames[len(frames)-1], "data: ")), &last))
	require.True(t, last.Done)
}

func TestRouter_UploadRejectsNonPDF(t *testing.T) {
	server := newTestServer(t)
	token := sessionToken(t, server)

	var buf bytes.Buffer
	body := multipartBody(t, &buf, "notes.txt", []byte("plain text, not a pdf"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", body)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "invalid_input", errBody["error"]["code"])
}

func TestRouter_StatusReportsState(t *testing.T) {
	server := newTestServer(t)
	token := sessionToken(t, server)

	rec := doRequest(server, http.MethodGet, "/api/v1/status", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status chat.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.False(t, status.Initialized)
	require.False(t, status.RAGReady)
	require.Equal(t, "test-index", status.IndexName)
	require.Contains(t, status.Personas, "Default")
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func multipartBody(t *testing.T, buf *bytes.Buffer, filename string, content []byte) string {
	t.Helper()
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return writer.FormDataContentType()
}
