package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/dkoval/ragchat/internal/domain/chat"
	"github.com/dkoval/ragchat/internal/domain/document"
	"github.com/dkoval/ragchat/internal/domain/model"
	"github.com/dkoval/ragchat/internal/domain/session"
	"github.com/dkoval/ragchat/internal/infra/config"
	"github.com/dkoval/ragchat/internal/infra/docrepo"
	"github.com/dkoval/ragchat/internal/infra/embedder"
	"github.com/dkoval/ragchat/internal/infra/history"
	"github.com/dkoval/ragchat/internal/infra/llm/azureopenai"
	"github.com/dkoval/ragchat/internal/infra/llm/huggingface"
	"github.com/dkoval/ragchat/internal/infra/pdfext"
	"github.com/dkoval/ragchat/internal/infra/queue"
	"github.com/dkoval/ragchat/internal/infra/splitter"
	"github.com/dkoval/ragchat/internal/infra/storage"
	"github.com/dkoval/ragchat/internal/infra/vectorstore/memory"
	"github.com/dkoval/ragchat/internal/infra/vectorstore/pinecone"
	"github.com/dkoval/ragchat/internal/infra/vectorstore/postgres"
)

func providePgPool(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	dsn := strings.TrimSpace(cfg.VectorStore.Postgres.DSN)
	if dsn == "" {
		return nil
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, falling back to memory stores", "error", err)
		return nil
	}
	if cfg.VectorStore.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.VectorStore.Postgres.MaxConns
	}
	if cfg.VectorStore.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.VectorStore.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, falling back to memory stores", "error", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, falling back to memory stores", "error", err)
		pool.Close()
		return nil
	}
	logger.Info("postgres pool ready")
	return pool
}

func provideDocumentRepository(pool *pgxpool.Pool) document.Repository {
	if pool != nil {
		return docrepo.NewPostgresRepository(pool)
	}
	return docrepo.NewMemoryRepository()
}

func provideFileRepository(pool *pgxpool.Pool) document.FileRepository {
	if pool != nil {
		return docrepo.NewPostgresFileRepository(pool)
	}
	return docrepo.NewMemoryFileRepository()
}

func provideVectorStore(cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) document.VectorStore {
	switch cfg.VectorStore.Driver {
	case "pinecone":
		if err := cfg.ValidatePinecone(); err != nil {
			logger.Error("pinecone not configured, using memory vector store", "error", err)
			return memory.NewStore()
		}
		logger.Info("pinecone vector store enabled", "index", cfg.VectorStore.Pinecone.IndexName)
		return pinecone.NewStore(pinecone.Config{
			APIKey:    cfg.VectorStore.Pinecone.APIKey,
			IndexName: cfg.VectorStore.Pinecone.IndexName,
			Cloud:     cfg.VectorStore.Pinecone.Cloud,
			Region:    cfg.VectorStore.Pinecone.Region,
			Metric:    cfg.VectorStore.Pinecone.Metric,
			Dimension: cfg.VectorStore.Pinecone.Dimension,
		})
	case "postgres":
		if pool == nil {
			logger.Error("postgres unavailable, using memory vector store")
			return memory.NewStore()
		}
		logger.Info("postgres vector store enabled")
		return postgres.NewStore(pool)
	default:
		return memory.NewStore()
	}
}

func provideAzureClient(cfg *config.Config) *azureopenai.Client {
	if !cfg.Azure.Configured() {
		return nil
	}
	client, err := azureopenai.NewClient(azureopenai.Config{
		APIKey:              cfg.Azure.APIKey,
		Endpoint:            cfg.Azure.Endpoint,
		Deployment:          cfg.Azure.Deployment,
		APIVersion:          cfg.Azure.APIVersion,
		EmbeddingDeployment: cfg.Azure.EmbeddingDeployment,
		EmbeddingAPIVersion: cfg.Azure.EmbeddingAPIVersion,
	})
	if err != nil {
		return nil
	}
	return client
}

func provideEmbedder(cfg *config.Config, azure *azureopenai.Client, logger *slog.Logger) document.Embedder {
	if azure != nil {
		return embedder.NewAzureEmbedder(azure, cfg.Azure.EmbeddingModel, cfg.Azure.EmbedBatchSize)
	}
	logger.Warn("azure embeddings not configured, using deterministic embedder")
	return embedder.NewDeterministicEmbedder(256)
}

func provideSplitter(cfg *config.Config) document.Splitter {
	return splitter.NewRecursive(splitter.Config{
		ChunkSize:    cfg.Splitter.ChunkSize,
		ChunkOverlap: cfg.Splitter.ChunkOverlap,
		Separators:   cfg.Splitter.Separators,
		Encoding:     cfg.Splitter.Encoding,
	})
}

func provideExtractor() document.TextExtractor {
	return pdfext.NewExtractor()
}

func provideStorage(cfg *config.Config, logger *slog.Logger) document.ObjectStorage {
	if cfg.Storage.Driver == "minio" {
		store, err := storage.NewS3Storage(storage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
		}, logger)
		if err != nil {
			logger.Error("failed to initialize object storage, using memory storage", "error", err)
			return storage.NewMemoryStorage()
		}
		logger.Info("s3 object storage enabled", "bucket", cfg.Storage.Bucket)
		return store
	}
	return storage.NewMemoryStorage()
}

func provideQueue(cfg *config.Config, logger *slog.Logger) queue.HandlerQueue {
	if cfg.Queue.Driver == "valkey" {
		opt, err := buildValkeyOptions(cfg.Queue.Addr)
		if err != nil {
			logger.Error("invalid valkey configuration, using immediate queue", "error", err)
			return queue.NewImmediateQueue(nil)
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, using immediate queue", "error", err)
			return queue.NewImmediateQueue(nil)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, using immediate queue", "error", err)
			return queue.NewImmediateQueue(nil)
		}
		logger.Info("valkey job queue enabled", "addr", cfg.Queue.Addr)
		return queue.NewValkeyQueue(client, cfg.Queue.Key, logger)
	}
	return queue.NewImmediateQueue(nil)
}

func provideHistoryStore(cfg *config.Config, logger *slog.Logger) chat.HistoryStore {
	addr := strings.TrimSpace(cfg.Chat.HistoryAddr)
	if addr == "" {
		return history.NewMemoryStore()
	}
	opt, err := buildValkeyOptions(addr)
	if err != nil {
		logger.Error("invalid history valkey configuration, using memory history", "error", err)
		return history.NewMemoryStore()
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create history valkey client, using memory history", "error", err)
		return history.NewMemoryStore()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("history valkey ping failed, using memory history", "error", err)
		return history.NewMemoryStore()
	}
	logger.Info("valkey conversation history enabled", "addr", addr)
	return history.NewValkeyStore(client, "ragchat:history", cfg.Chat.HistoryTTL)
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

func provideDocumentConfig(cfg *config.Config) document.Config {
	return document.Config{
		MaxFileBytes: cfg.Upload.MaxFileBytes,
		IndexName:    cfg.VectorStore.Pinecone.IndexName,
	}
}

func provideDocumentService(
	docCfg document.Config,
	docs document.Repository,
	files document.FileRepository,
	store document.ObjectStorage,
	extractor document.TextExtractor,
	split document.Splitter,
	embed document.Embedder,
	vectors document.VectorStore,
	jobs queue.HandlerQueue,
	logger *slog.Logger,
) *document.Service {
	svc := document.NewService(docCfg, docs, files, store, extractor, split, embed, vectors, jobs, logger)
	jobs.SetHandler(func(ctx context.Context, name string, payload map[string]any) {
		if name != "process_document" {
			return
		}
		raw, _ := payload["document_id"].(string)
		id, err := uuid.Parse(raw)
		if err != nil {
			logger.Warn("process_document job with malformed id", "document_id", raw)
			return
		}
		if err := svc.Process(ctx, id); err != nil {
			logger.Error("document processing failed", "document_id", id, "error", err)
		}
	})
	return svc
}

func provideModelManager(cfg *config.Config, azure *azureopenai.Client) *model.Manager {
	factories := map[model.Provider]model.Factory{}
	if cfg.Azure.Configured() {
		factories[model.ProviderAzure] = func() (model.ChatModel, error) {
			if err := cfg.ValidateAzure(); err != nil {
				return nil, err
			}
			return azureopenai.NewChatModel(azure, cfg.Azure.Deployment, cfg.Azure.Temperature, cfg.Azure.MaxTokens), nil
		}
	}
	if cfg.HuggingFace.Configured() {
		factories[model.ProviderHuggingFace] = func() (model.ChatModel, error) {
			if err := cfg.ValidateHuggingFace(); err != nil {
				return nil, err
			}
			client, err := huggingface.NewClient(huggingface.Config{
				APIKey:       cfg.HuggingFace.APIKey,
				ModelRepo:    cfg.HuggingFace.ModelRepo,
				Temperature:  cfg.HuggingFace.Temperature,
				MaxNewTokens: cfg.HuggingFace.MaxNewTokens,
			})
			if err != nil {
				return nil, err
			}
			return huggingface.NewChatModel(client), nil
		}
	}
	return model.NewManager(factories)
}

func provideChatConfig(cfg *config.Config) chat.Config {
	return chat.Config{
		Personas:           cfg.Chat.Personas,
		DefaultPersona:     cfg.Chat.DefaultPersona,
		TopK:               cfg.Retrieval.TopK,
		HistoryTokenBudget: cfg.Chat.MaxHistoryTokens,
		MaxHistoryTurns:    cfg.Chat.MaxHistoryTurns,
		MaxPreviewChars:    cfg.Retrieval.MaxPreviewChars,
	}
}

func provideSessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		Secret:   cfg.Session.Secret,
		TokenTTL: cfg.Session.TTL,
	}
}
