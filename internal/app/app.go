// Package app wires configuration into the stores, services and router
// shared by the API server and the worker.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"docuchat-backend/internal/api"
	"docuchat-backend/internal/auth"
	"docuchat-backend/internal/cache"
	"docuchat-backend/internal/config"
	"docuchat-backend/internal/handlers"
	"docuchat-backend/internal/integrations"
	"docuchat-backend/internal/llm"
	"docuchat-backend/internal/queue"
	"docuchat-backend/internal/rag"
	"docuchat-backend/internal/services"
	"docuchat-backend/internal/storage"
	"docuchat-backend/internal/store"
	"docuchat-backend/internal/store/memory"
	"docuchat-backend/internal/store/postgres"
)

const embeddingCacheTTL = 24 * time.Hour

// App is a fully wired instance of the backend.
type App struct {
	Router http.Handler
	// Worker consumes background tasks. It is nil when tasks run inline.
	Worker queue.Server

	closers []func()
}

// New builds the application from cfg. Close must be called to release
// connections.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	st, err := a.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var c cache.Cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			log.Printf("WARN: Redis cache unavailable, continuing without it: %v", err)
		} else {
			c = rc
			a.closers = append(a.closers, func() { _ = rc.Close() })
		}
	}

	queryEmbedder, indexEmbedder := newEmbedders(cfg, c)
	retriever := rag.NewRetriever(st, queryEmbedder, cfg.TopKResults, cfg.SimilarityThreshold)
	indexer := rag.NewIndexer(st, indexEmbedder, cfg.ChunkSize, cfg.ChunkOverlap)

	tasks, err := a.openQueue(cfg, indexer)
	if err != nil {
		return nil, err
	}

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	generator := llm.NewRegistryFromConfig(cfg).Select(cfg.LLMProvider)
	log.Printf("LLM provider %s selected.", generator.Name())

	notion := integrations.NewNotionImporter(cfg.NotionToken)
	if notion == nil {
		log.Println("NOTION_TOKEN is not set; Notion import is disabled.")
	}

	// --- Initialize Services ---
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenExpiration)
	hasher := auth.NewHasher(cfg.BcryptCost, cfg.PasswordHashConcurrency)
	authService := services.NewAuthService(st, hasher, tokens)
	conversationService := services.NewConversationService(st)
	chatService := services.NewChatService(st, retriever, generator)
	documentService := services.NewDocumentService(st, blobs, tasks, retriever, notion, services.DocumentServiceConfig{
		MaxFileSize:       cfg.MaxFileSize,
		AllowedExtensions: cfg.AllowedExtensions,
	})

	// --- Initialize Handlers & Router ---
	a.Router = api.NewRouter(api.RouterDependencies{
		AuthHandler:         handlers.NewAuthHandler(authService, cfg.CookieSecure),
		ConversationHandler: handlers.NewConversationHandlers(conversationService),
		ChatHandler:         handlers.NewChatHandlers(chatService),
		DocumentHandler:     handlers.NewDocumentHandlers(documentService, cfg.MaxFileSize),
		Tokens:              authService,
		AllowedOrigins:      cfg.CORSAllowedOrigins,
	})
	log.Println("HTTP router configured.")

	ok = true
	return a, nil
}

// Close releases every resource opened by New, newest first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// newEmbedders returns the embedder for chat and search queries, cached when
// c is non-nil, and the uncached embedder for document chunks. Both are nil
// without an OpenAI key.
func newEmbedders(cfg *config.Config, c cache.Cache) (query, index rag.Embedder) {
	if cfg.OpenAIAPIKey == "" {
		log.Println("WARN: OPENAI_API_KEY is not set; documents will be stored but not searchable.")
		return nil, nil
	}
	base := rag.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel)
	if c == nil {
		return base, base
	}
	return rag.NewCachedEmbedder(base, c, cfg.EmbeddingModel, embeddingCacheTTL), base
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Println("WARN: Using the in-memory store; all data is lost on restart.")
		return memory.New(), nil
	case config.StoreDriverPostgres:
		dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if cfg.RunMigrations {
			if err := postgres.RunMigrations(dbCtx, cfg.DatabaseURL); err != nil {
				return nil, err
			}
		}
		pool, err := postgres.NewPool(dbCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		log.Println("Database connection pool established and pinged successfully.")
		return postgres.NewPostgresStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

// openQueue returns the task client. With Redis, indexing runs on an asynq
// worker (a.Worker); without it, tasks run inline in the request.
func (a *App) openQueue(cfg *config.Config, indexer *rag.Indexer) (queue.Client, error) {
	if cfg.RedisURL == "" {
		inline := queue.NewInline()
		inline.Register(rag.TaskIndexDocument, indexer.HandleTask)
		log.Println("REDIS_URL is not set; documents are indexed inline.")
		return inline, nil
	}

	client, err := queue.NewAsynqClient(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = client.Close() })

	worker, err := queue.NewAsynqServer(cfg.RedisURL, cfg.WorkerConcurrency)
	if err != nil {
		return nil, err
	}
	worker.Register(rag.TaskIndexDocument, indexer.HandleTask)
	a.Worker = worker
	return client, nil
}

func openBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	var blobs storage.BlobStore
	switch cfg.BlobDriver {
	case config.BlobDriverS3:
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		blobs = s3Store
	default:
		local, err := storage.NewLocalStore(cfg.UploadDir)
		if err != nil {
			return nil, err
		}
		blobs = local
	}

	if len(cfg.EncryptionKey) == 0 {
		return blobs, nil
	}
	encrypted, err := storage.NewEncryptedStore(blobs, cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES-GCM cipher: %w", err)
	}
	log.Println("Document files are encrypted at rest (AES-GCM).")
	return encrypted, nil
}
