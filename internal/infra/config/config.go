package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Azure       AzureConfig       `yaml:"azure"`
	HuggingFace HuggingFaceConfig `yaml:"huggingface"`
	Splitter    SplitterConfig    `yaml:"splitter"`
	VectorStore VectorStoreConfig `yaml:"vectorStore"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Session     SessionConfig     `yaml:"session"`
	Storage     StorageConfig     `yaml:"storage"`
	Queue       QueueConfig       `yaml:"queue"`
	Chat        ChatConfig        `yaml:"chat"`
	Upload      UploadConfig      `yaml:"upload"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Retry          RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for idempotent requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// AzureConfig contains Azure OpenAI chat and embedding settings.
type AzureConfig struct {
	APIKey              string  `yaml:"apiKey"`
	Endpoint            string  `yaml:"endpoint"`
	Deployment          string  `yaml:"deployment"`
	APIVersion          string  `yaml:"apiVersion"`
	EmbeddingDeployment string  `yaml:"embeddingDeployment"`
	EmbeddingModel      string  `yaml:"embeddingModel"`
	EmbeddingAPIVersion string  `yaml:"embeddingApiVersion"`
	Temperature         float32 `yaml:"temperature"`
	MaxTokens           int     `yaml:"maxTokens"`
	EmbedBatchSize      int     `yaml:"embedBatchSize"`
}

// Configured reports whether the Azure provider can be activated.
func (c AzureConfig) Configured() bool {
	return c.APIKey != "" && c.Endpoint != "" && c.Deployment != ""
}

// HuggingFaceConfig contains Inference API settings.
type HuggingFaceConfig struct {
	APIKey       string  `yaml:"apiKey"`
	ModelRepo    string  `yaml:"modelRepo"`
	Temperature  float32 `yaml:"temperature"`
	MaxNewTokens int     `yaml:"maxNewTokens"`
}

// Configured reports whether the HuggingFace provider can be activated.
func (c HuggingFaceConfig) Configured() bool {
	return c.APIKey != ""
}

// SplitterConfig drives text chunking before embedding.
type SplitterConfig struct {
	ChunkSize    int      `yaml:"chunkSize"`
	ChunkOverlap int      `yaml:"chunkOverlap"`
	Separators   []string `yaml:"separators"`
	Encoding     string   `yaml:"encoding"`
}

// VectorStoreConfig selects and configures the vector index backend.
type VectorStoreConfig struct {
	Driver   string         `yaml:"driver"`
	Pinecone PineconeConfig `yaml:"pinecone"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// PineconeConfig contains serverless index settings.
type PineconeConfig struct {
	APIKey    string `yaml:"apiKey"`
	Cloud     string `yaml:"cloud"`
	Region    string `yaml:"region"`
	IndexName string `yaml:"indexName"`
	Metric    string `yaml:"metric"`
	Dimension int    `yaml:"dimension"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// RetrievalConfig controls similarity search behavior.
type RetrievalConfig struct {
	TopK            int `yaml:"topK"`
	MaxPreviewChars int `yaml:"maxPreviewChars"`
}

// SessionConfig controls issued session tokens.
type SessionConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

// StorageConfig selects blob storage for uploaded documents.
type StorageConfig struct {
	Driver    string `yaml:"driver"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// QueueConfig selects the document processing queue.
type QueueConfig struct {
	Driver string `yaml:"driver"`
	Addr   string `yaml:"addr"`
	Key    string `yaml:"key"`
}

// ChatConfig controls conversation behavior.
type ChatConfig struct {
	DefaultPersona   string            `yaml:"defaultPersona"`
	Personas         map[string]string `yaml:"personas"`
	MaxHistoryTokens int               `yaml:"maxHistoryTokens"`
	MaxHistoryTurns  int               `yaml:"maxHistoryTurns"`
	HistoryAddr      string            `yaml:"historyAddr"`
	HistoryTTL       time.Duration     `yaml:"historyTtl"`
}

// UploadConfig bounds document submissions.
type UploadConfig struct {
	MaxFileBytes int64 `yaml:"maxFileBytes"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("AZURE_OPENAI_KEY"); v != "" {
		cfg.Azure.APIKey = v
	}
	if v := os.Getenv("AZURE_OPENAI_ENDPOINT"); v != "" {
		cfg.Azure.Endpoint = v
	}
	if v := os.Getenv("DEPLOYMENT_NAME"); v != "" {
		cfg.Azure.Deployment = v
	}
	if v := os.Getenv("AZURE_API_VERSION"); v != "" {
		cfg.Azure.APIVersion = v
	}
	if v := os.Getenv("AZURE_EMBEDDING_DEPLOYMENT"); v != "" {
		cfg.Azure.EmbeddingDeployment = v
	}
	if v := os.Getenv("AZURE_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.Azure.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("AZURE_MAX_TOKENS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Azure.MaxTokens = parsed
		}
	}
	if v := os.Getenv("HUGGINGFACE_API_KEY"); v != "" {
		cfg.HuggingFace.APIKey = v
	}
	if v := os.Getenv("HUGGINGFACE_MODEL_REPO"); v != "" {
		cfg.HuggingFace.ModelRepo = v
	}
	if v := os.Getenv("PINECONE_API_KEY"); v != "" {
		cfg.VectorStore.Pinecone.APIKey = v
	}
	if v := os.Getenv("PINECONE_CLOUD"); v != "" {
		cfg.VectorStore.Pinecone.Cloud = v
	}
	if v := os.Getenv("PINECONE_REGION"); v != "" {
		cfg.VectorStore.Pinecone.Region = v
	}
	if v := os.Getenv("PINECONE_INDEX_NAME"); v != "" {
		cfg.VectorStore.Pinecone.IndexName = v
	}
	if v := os.Getenv("VECTOR_STORE_DRIVER"); v != "" {
		cfg.VectorStore.Driver = v
	}
	if v := os.Getenv("VECTOR_STORE_POSTGRES_DSN"); v != "" {
		cfg.VectorStore.Postgres.DSN = v
	}
	if v := os.Getenv("RETRIEVAL_TOP_K"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.TopK = parsed
		}
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.Session.Secret = v
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Session.TTL = parsed
		}
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("STORAGE_ENDPOINT"); v != "" {
		cfg.Storage.Endpoint = v
	}
	if v := os.Getenv("STORAGE_ACCESS_KEY"); v != "" {
		cfg.Storage.AccessKey = v
	}
	if v := os.Getenv("STORAGE_SECRET_KEY"); v != "" {
		cfg.Storage.SecretKey = v
	}
	if v := os.Getenv("STORAGE_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := os.Getenv("QUEUE_DRIVER"); v != "" {
		cfg.Queue.Driver = v
	}
	if v := os.Getenv("QUEUE_ADDR"); v != "" {
		cfg.Queue.Addr = v
	}
	if v := os.Getenv("CHAT_HISTORY_ADDR"); v != "" {
		cfg.Chat.HistoryAddr = v
	}
	if v := os.Getenv("CHAT_MAX_HISTORY_TOKENS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Chat.MaxHistoryTokens = parsed
		}
	}
	if v := os.Getenv("UPLOAD_MAX_FILE_BYTES"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Upload.MaxFileBytes = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_ENABLED"); v != "" {
		cfg.HTTP.Retry.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
				Exclude: []string{
					"/api/v1/chat/stream",
					"/api/v1/documents",
				},
			},
		},
		Azure: AzureConfig{
			APIVersion:          "2024-02-01",
			EmbeddingDeployment: "text-embedding-3-small",
			EmbeddingModel:      "text-embedding-3-small",
			EmbeddingAPIVersion: "2023-05-15",
			Temperature:         0.7,
			MaxTokens:           800,
			EmbedBatchSize:      1000,
		},
		HuggingFace: HuggingFaceConfig{
			ModelRepo:    "microsoft/DialoGPT-large",
			Temperature:  0.7,
			MaxNewTokens: 512,
		},
		Splitter: SplitterConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
			Separators:   []string{"\n\n", "\n", ". ", "! ", "? ", " ", ""},
			Encoding:     "cl100k_base",
		},
		VectorStore: VectorStoreConfig{
			Driver: "memory",
			Pinecone: PineconeConfig{
				Cloud:     "aws",
				Region:    "us-east-1",
				IndexName: "pdf-chatbot-index",
				Metric:    "cosine",
				Dimension: 1536,
			},
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
		Retrieval: RetrievalConfig{
			TopK:            3,
			MaxPreviewChars: 240,
		},
		Session: SessionConfig{
			TTL: 12 * time.Hour,
		},
		Storage: StorageConfig{
			Driver: "memory",
			Bucket: "ragchat-uploads",
		},
		Queue: QueueConfig{
			Driver: "immediate",
			Key:    "ragchat:jobs",
		},
		Chat: ChatConfig{
			DefaultPersona:   "Helpful Assistant (Default)",
			Personas:         defaultPersonas(),
			MaxHistoryTokens: 1200,
			MaxHistoryTurns:  25,
			HistoryTTL:       24 * time.Hour,
		},
		Upload: UploadConfig{
			MaxFileBytes: 32 << 20,
		},
	}
}

func defaultPersonas() map[string]string {
	return map[string]string{
		"Helpful Assistant (Default)": "You are a helpful AI assistant. Provide clear, concise, and accurate responses.",
		"Technical Expert":            "You are a technical expert. Provide detailed, accurate technical information and explanations.",
		"Creative Writer":             "You are a creative writer. Respond with imaginative, engaging, and creative content.",
		"Formal Business Assistant":   "You are a formal business assistant. Provide professional, concise, and business-appropriate responses.",
		"Casual Friendly Helper":      "You are a casual, friendly helper. Respond in a warm, conversational tone.",
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.Splitter.ChunkSize <= 0 {
		return errors.New("splitter.chunkSize must be positive")
	}
	if c.Splitter.ChunkOverlap < 0 {
		return errors.New("splitter.chunkOverlap cannot be negative")
	}
	if c.Splitter.ChunkOverlap >= c.Splitter.ChunkSize {
		return errors.New("splitter.chunkOverlap must be smaller than chunkSize")
	}
	if c.Retrieval.TopK <= 0 {
		return errors.New("retrieval.topK must be positive")
	}
	switch c.VectorStore.Driver {
	case "pinecone", "postgres", "memory":
	default:
		return fmt.Errorf("vectorStore.driver %q is not supported", c.VectorStore.Driver)
	}
	if c.VectorStore.Driver == "postgres" && strings.TrimSpace(c.VectorStore.Postgres.DSN) == "" {
		return errors.New("vectorStore.postgres.dsn cannot be empty when driver is postgres")
	}
	switch c.Storage.Driver {
	case "minio", "memory":
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver)
	}
	if c.Storage.Driver == "minio" && c.Storage.Endpoint == "" {
		return errors.New("storage.endpoint cannot be empty when driver is minio")
	}
	switch c.Queue.Driver {
	case "valkey", "immediate":
	default:
		return fmt.Errorf("queue.driver %q is not supported", c.Queue.Driver)
	}
	if c.Queue.Driver == "valkey" && strings.TrimSpace(c.Queue.Addr) == "" {
		return errors.New("queue.addr cannot be empty when driver is valkey")
	}
	if c.Chat.DefaultPersona == "" {
		return errors.New("chat.defaultPersona cannot be empty")
	}
	if _, ok := c.Chat.Personas[c.Chat.DefaultPersona]; !ok {
		return fmt.Errorf("chat.personas is missing the default persona %q", c.Chat.DefaultPersona)
	}
	if c.Chat.MaxHistoryTokens <= 0 {
		return errors.New("chat.maxHistoryTokens must be positive")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	if c.Upload.MaxFileBytes <= 0 {
		return errors.New("upload.maxFileBytes must be positive")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	return nil
}

// ValidateAzure checks the Azure provider credentials before model activation.
func (c *Config) ValidateAzure() error {
	if !c.Azure.Configured() {
		return errors.New("azure openai credentials not set (apiKey, endpoint, deployment required)")
	}
	return nil
}

// ValidateHuggingFace checks the HuggingFace provider credentials.
func (c *Config) ValidateHuggingFace() error {
	if !c.HuggingFace.Configured() {
		return errors.New("huggingface api key not set")
	}
	if c.HuggingFace.ModelRepo == "" {
		return errors.New("huggingface model repo not set")
	}
	return nil
}

// ValidatePinecone checks the Pinecone credentials.
func (c *Config) ValidatePinecone() error {
	if c.VectorStore.Pinecone.APIKey == "" {
		return errors.New("pinecone api key not set")
	}
	return nil
}
