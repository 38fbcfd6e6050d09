package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api-inference.huggingface.co/models"

// Parameters tune the hosted text generation endpoint.
type Parameters struct {
	Temperature  float32 `json:"temperature,omitempty"`
	MaxNewTokens int     `json:"max_new_tokens,omitempty"`
	ReturnText   bool    `json:"return_full_text"`
}

type generateRequest struct {
	Inputs     string     `json:"inputs"`
	Parameters Parameters `json:"parameters"`
	Options    struct {
		WaitForModel bool `json:"wait_for_model"`
	} `json:"options"`
}

type generateResponse []struct {
	GeneratedText string `json:"generated_text"`
}

// Client calls the HuggingFace Inference API for a single model repo.
type Client struct {
	apiKey       string
	baseURL      string
	modelRepo    string
	temperature  float32
	maxNewTokens int
	httpClient   *http.Client
}

// Config collects client settings.
type Config struct {
	APIKey       string
	BaseURL      string
	ModelRepo    string
	Temperature  float32
	MaxNewTokens int
}

// NewClient constructs a HuggingFace Inference client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("huggingface api key cannot be empty")
	}
	if strings.TrimSpace(cfg.ModelRepo) == "" {
		return nil, errors.New("huggingface model repo cannot be empty")
	}
	baseURL := cfg.BaseURL
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		modelRepo:    cfg.ModelRepo,
		temperature:  cfg.Temperature,
		maxNewTokens: cfg.MaxNewTokens,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// ModelRepo reports the configured model repository.
func (c *Client) ModelRepo() string {
	return c.modelRepo
}

// Generate runs a single text generation request and returns the completion.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Inputs: prompt,
		Parameters: Parameters{
			Temperature:  c.temperature,
			MaxNewTokens: c.maxNewTokens,
			ReturnText:   false,
		},
	}
	req.Options.WaitForModel = true

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode generation request: %w", err)
	}
	endpoint := c.baseURL + "/" + pathJoinRepo(c.modelRepo)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build generation request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request text generation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("huggingface request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read generation response: %w", err)
	}
	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode generation response: %w", err)
	}
	if len(out) == 0 {
		return "", errors.New("huggingface returned no generations")
	}
	return strings.TrimSpace(out[0].GeneratedText), nil
}

// Model repos contain a slash (owner/name); escape each segment separately.
func pathJoinRepo(repo string) string {
	parts := strings.Split(repo, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
