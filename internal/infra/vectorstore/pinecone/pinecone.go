package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dkoval/ragchat/internal/domain/document"
	"github.com/dkoval/ragchat/pkg/errors"
)

const defaultControlURL = "https://api.pinecone.io"

// Store is a minimal REST client to Pinecone serverless.
// It creates the index if missing.
type Store struct {
	apiKey     string
	controlURL string
	indexName  string
	cloud      string
	region     string
	metric     string
	dimension  int
	client     *http.Client

	// mu guards dataURL, which is resolved lazily and may be read by
	// concurrent queries.
	mu      sync.Mutex
	dataURL string
}

type Config struct {
	APIKey    string
	IndexName string
	Cloud     string
	Region    string
	Metric    string
	// Dimension, when set, is the expected embedding width. EnsureIndex
	// rejects embeddings of a different width before touching the index.
	Dimension int
	// ControlURL and DataURL override the API hosts, used in tests.
	ControlURL string
	DataURL    string
	Timeout    time.Duration
}

func NewStore(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	controlURL := cfg.ControlURL
	if controlURL == "" {
		controlURL = defaultControlURL
	}
	cloud := cfg.Cloud
	if cloud == "" {
		cloud = "aws"
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	metric := cfg.Metric
	if metric == "" {
		metric = "cosine"
	}
	return &Store{
		apiKey:     cfg.APIKey,
		controlURL: controlURL,
		dataURL:    cfg.DataURL,
		indexName:  cfg.IndexName,
		cloud:      cloud,
		region:     region,
		metric:     metric,
		dimension:  cfg.Dimension,
		client:     &http.Client{Timeout: timeout},
	}
}

type indexDescription struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Host      string `json:"host"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

// EnsureIndex creates the serverless index when absent and waits until
// it reports ready, then caches the data plane host.
func (s *Store) EnsureIndex(ctx context.Context, dim int) error {
	if dim <= 0 {
		return &errors.AppError{Code: errors.CodeInvalidInput, Message: "vector dimension must be positive"}
	}
	if s.dimension > 0 && dim != s.dimension {
		return &errors.AppError{
			Code:    errors.CodeStorageError,
			Message: fmt.Sprintf("embedding dimension %d does not match configured dimension %d", dim, s.dimension),
		}
	}

	desc, found, err := s.describeIndex(ctx)
	if err != nil {
		return err
	}
	if found {
		if desc.Dimension != dim {
			return &errors.AppError{
				Code:    errors.CodeStorageError,
				Message: fmt.Sprintf("index %s has dimension %d, need %d", s.indexName, desc.Dimension, dim),
			}
		}
	} else {
		body := map[string]any{
			"name":      s.indexName,
			"dimension": dim,
			"metric":    s.metric,
			"spec": map[string]any{
				"serverless": map[string]any{
					"cloud":  s.cloud,
					"region": s.region,
				},
			},
		}
		if err := s.doJSON(ctx, http.MethodPost, s.controlURL+"/indexes", body, nil); err != nil {
			return err
		}
	}
	return s.waitReady(ctx)
}

func (s *Store) Upsert(ctx context.Context, chunks []document.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	host, err := s.host(ctx)
	if err != nil {
		return err
	}
	vectors := make([]map[string]any, len(chunks))
	for i, chunk := range chunks {
		vectors[i] = map[string]any{
			"id":     chunk.ID.String(),
			"values": chunk.Embedding,
			"metadata": map[string]any{
				"document_id": chunk.DocumentID.String(),
				"chunk_index": chunk.Index,
				"text":        chunk.Content,
				"token_count": chunk.TokenCount,
			},
		}
	}
	return s.doJSON(ctx, http.MethodPost, host+"/vectors/upsert", map[string]any{"vectors": vectors}, nil)
}

func (s *Store) Query(ctx context.Context, embedding []float32, topK int, documentIDs []uuid.UUID) ([]document.ScoredChunk, error) {
	if topK <= 0 {
		topK = 3
	}
	host, err := s.host(ctx)
	if err != nil {
		return nil, err
	}
	req := map[string]any{
		"vector":          embedding,
		"topK":            topK,
		"includeMetadata": true,
	}
	if len(documentIDs) > 0 {
		ids := make([]string, len(documentIDs))
		for i, id := range documentIDs {
			ids[i] = id.String()
		}
		req["filter"] = map[string]any{"document_id": map[string]any{"$in": ids}}
	}

	var resp struct {
		Matches []struct {
			ID       string         `json:"id"`
			Score    float64        `json:"score"`
			Metadata map[string]any `json:"metadata"`
		} `json:"matches"`
	}
	if err := s.doJSON(ctx, http.MethodPost, host+"/query", req, &resp); err != nil {
		return nil, err
	}

	results := make([]document.ScoredChunk, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		chunk := document.Chunk{}
		if id, err := uuid.Parse(m.ID); err == nil {
			chunk.ID = id
		}
		if v, ok := m.Metadata["document_id"].(string); ok {
			if id, err := uuid.Parse(v); err == nil {
				chunk.DocumentID = id
			}
		}
		if v, ok := m.Metadata["chunk_index"].(float64); ok {
			chunk.Index = int(v)
		}
		if v, ok := m.Metadata["text"].(string); ok {
			chunk.Content = v
		}
		if v, ok := m.Metadata["token_count"].(float64); ok {
			chunk.TokenCount = int(v)
		}
		results = append(results, document.ScoredChunk{Chunk: chunk, Score: m.Score})
	}
	return results, nil
}

// Reset removes every vector from the index.
func (s *Store) Reset(ctx context.Context) error {
	host, err := s.host(ctx)
	if err != nil {
		return err
	}
	return s.doJSON(ctx, http.MethodPost, host+"/vectors/delete", map[string]any{"deleteAll": true}, nil)
}

func (s *Store) describeIndex(ctx context.Context) (indexDescription, bool, error) {
	var desc indexDescription
	url := s.controlURL + "/indexes/" + s.indexName
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return desc, false, err
	}
	httpReq.Header.Set("Api-Key", s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return desc, false, fmt.Errorf("request pinecone: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return desc, false, nil
	}
	if resp.StatusCode >= 300 {
		return desc, false, fmt.Errorf("pinecone GET %s failed: %s", url, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return desc, false, fmt.Errorf("decode index description: %w", err)
	}
	return desc, true, nil
}

// waitReady polls the index description until it reports ready and
// exposes a host, giving a freshly created index time to come up.
func (s *Store) waitReady(ctx context.Context) error {
	for attempt := 0; attempt < 30; attempt++ {
		desc, found, err := s.describeIndex(ctx)
		if err != nil {
			return err
		}
		if found && desc.Status.Ready && desc.Host != "" {
			host := desc.Host
			if !strings.Contains(host, "://") {
				host = "https://" + host
			}
			s.mu.Lock()
			if s.dataURL == "" {
				s.dataURL = host
			}
			s.mu.Unlock()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return &errors.AppError{
		Code:    errors.CodeStorageError,
		Message: fmt.Sprintf("index %s did not become ready", s.indexName),
	}
}

func (s *Store) host(ctx context.Context) (string, error) {
	s.mu.Lock()
	cached := s.dataURL
	s.mu.Unlock()
	if cached != "" {
		return cached, nil
	}
	if err := s.waitReady(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataURL, nil
}

func (s *Store) doJSON(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Api-Key", s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request pinecone: %w", err)
	}
	defer resp.Body.Close()

	// Creating an index that already exists is not a failure.
	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("pinecone %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

var _ document.VectorStore = (*Store)(nil)
