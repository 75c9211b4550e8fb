package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Supported backends for the pluggable pieces of the service.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	BlobDriverLocal = "local"
	BlobDriverS3    = "s3"
)

const defaultJWTSecret = "your-super-secret-jwt-key-change-this-in-production"

// Config holds application configuration values loaded from environment variables.
type Config struct {
	HTTPPort      string
	StoreDriver   string
	DatabaseURL   string
	RunMigrations bool

	// Auth
	JWTSecret               string
	TokenExpiration         time.Duration
	CookieSecure            bool
	BcryptCost              int
	PasswordHashConcurrency int

	CORSAllowedOrigins []string

	// Redis backs both the embedding cache and the asynq task queue.
	RedisURL          string
	WorkerConcurrency int
	EmbeddedWorker    bool

	// LLM
	LLMProvider    string
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	GroqAPIKey     string
	GroqModel      string
	GeminiAPIKey   string
	GeminiModel    string
	GeminiBaseURL  string
	LLMTemperature float32
	LLMMaxTokens   int

	// Retrieval
	EmbeddingModel      string
	ChunkSize           int
	ChunkOverlap        int
	TopKResults         int
	SimilarityThreshold float64

	// Documents
	BlobDriver        string
	UploadDir         string
	S3Bucket          string
	S3Region          string
	S3BaseEndpoint    string
	S3AccessKey       string
	S3SecretKey       string
	EncryptionKey     []byte // nil disables at-rest encryption of blobs
	MaxFileSize       int64
	AllowedExtensions []string

	NotionToken string
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Could not load .env file. Using environment variables only.")
	}

	cfg := &Config{
		HTTPPort:      getEnv("HTTP_PORT", "8000"),
		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RunMigrations: getEnvBool("RUN_MIGRATIONS", true),

		JWTSecret:               getEnv("SECRET_KEY", getEnv("JWT_SECRET", defaultJWTSecret)),
		TokenExpiration:         time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		CookieSecure:            getEnvBool("COOKIE_SECURE", false),
		BcryptCost:              getEnvInt("BCRYPT_COST", bcrypt.DefaultCost),
		PasswordHashConcurrency: getEnvInt("PASSWORD_HASH_CONCURRENCY", runtime.NumCPU()),

		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:8501,http://localhost:3000,http://localhost:5173")),

		RedisURL:          getEnv("REDIS_URL", ""),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
		EmbeddedWorker:    getEnvBool("EMBEDDED_WORKER", true),

		LLMProvider:    strings.ToLower(getEnv("LLM_PROVIDER", "groq")),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		GroqAPIKey:     getEnv("GROQ_API_KEY", ""),
		GroqModel:      getEnv("GROQ_MODEL", "llama-3.1-8b-instant"),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL:  getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		LLMTemperature: float32(getEnvFloat("LLM_TEMPERATURE", 0.7)),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 1000),

		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		ChunkSize:           getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:        getEnvInt("CHUNK_OVERLAP", 200),
		TopKResults:         getEnvInt("TOP_K_RESULTS", 5),
		SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0),

		BlobDriver:        strings.ToLower(getEnv("BLOB_DRIVER", BlobDriverLocal)),
		UploadDir:         getEnv("UPLOAD_DIR", "./uploads"),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3BaseEndpoint:    getEnv("S3_BASE_ENDPOINT", ""),
		S3AccessKey:       getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:       getEnv("S3_SECRET_KEY", ""),
		MaxFileSize:       int64(getEnvInt("MAX_FILE_SIZE", 10*1024*1024)),
		AllowedExtensions: splitCSV(strings.ToLower(getEnv("ALLOWED_EXTENSIONS", "txt,md,html,htm,csv,json"))),

		NotionToken: getEnv("NOTION_TOKEN", ""),
	}

	if keyHex := getEnv("ENCRYPTION_KEY", ""); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("failed to decode ENCRYPTION_KEY from hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("ENCRYPTION_KEY must be 32 bytes (64 hex characters) long, got %d bytes", len(key))
		}
		cfg.EncryptionKey = key
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == defaultJWTSecret {
		log.Println("WARN: SECRET_KEY is not set, using the development default. CHANGE THIS IN PRODUCTION!")
	}

	log.Printf("Loaded config: Port=%s, Store=%s, DB_URL=***, TokenExp=%s, CookieSecure=%t, LLM=%s, Blob=%s, Redis=%t",
		cfg.HTTPPort, cfg.StoreDriver, cfg.TokenExpiration, cfg.CookieSecure, cfg.LLMProvider, cfg.BlobDriver, cfg.RedisURL != "")

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL environment variable is not set")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.BlobDriver {
	case BlobDriverLocal:
	case BlobDriverS3:
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET must be set when BLOB_DRIVER=s3")
		}
	default:
		return fmt.Errorf("unknown BLOB_DRIVER %q", c.BlobDriver)
	}

	if c.TokenExpiration <= 0 {
		return errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.PasswordHashConcurrency < 1 {
		c.PasswordHashConcurrency = 1
	}
	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("invalid chunking settings: CHUNK_SIZE=%d CHUNK_OVERLAP=%d", c.ChunkSize, c.ChunkOverlap)
	}
	if c.TopKResults <= 0 {
		c.TopKResults = 5
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("Warning: Invalid %s '%s', using default %d. Error: %v", key, raw, fallback, err)
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s', using default %v. Error: %v", key, raw, fallback, err)
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("Warning: Invalid %s '%s', using default %t. Error: %v", key, raw, fallback, err)
		return fallback
	}
	return v
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
