package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI    string
	DBName      string
	Port        string
	GinMode     string
	CORSOrigins []string

	// Redis Configuration (rate limiting, embedding cache, task queue)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Embeddings configuration
	EmbeddingsProvider    string // "google" (default)
	GeminiAPIKey          string
	GoogleEmbeddingsModel string // e.g., "text-embedding-004"
	VectorDimensions      int
	EmbeddingCacheTTL     int // seconds; 0 disables the Redis cache

	// Chunking
	MaxChunkSize int
	ChunkOverlap int
	MinChunkSize int

	// Search
	SearchTimeoutSeconds int
	DefaultSearchLimit   int
	MaxSearchLimit       int

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Document ingestion
	FileStorageDir      string
	MaxFileSize         int64
	SyncProcessingLimit int64 // documents under this byte size are processed inline
	AllowedTypes        []string

	// Corpus audit
	AuditIntervalMinutes int
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/bank_research"),
		DBName:      getEnv("DB_NAME", "bank_research"),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "google"),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		VectorDimensions:      getEnvInt("VECTOR_DIM", 768),
		EmbeddingCacheTTL:     getEnvInt("EMBEDDING_CACHE_TTL", 3600),

		MaxChunkSize: getEnvInt("MAX_CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),
		MinChunkSize: getEnvInt("MIN_CHUNK_SIZE", 100),

		SearchTimeoutSeconds: getEnvInt("SEARCH_TIMEOUT", 10),
		DefaultSearchLimit:   getEnvInt("DEFAULT_SEARCH_LIMIT", 5),
		MaxSearchLimit:       getEnvInt("MAX_SEARCH_LIMIT", 50),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		FileStorageDir:      getEnv("FILE_STORAGE_DIR", "./storage"),
		MaxFileSize:         getEnvInt64("MAX_FILE_SIZE", 104857600),      // 100MB
		SyncProcessingLimit: getEnvInt64("SYNC_PROCESSING_LIMIT", 1048576), // 1MB inline, larger goes to the worker
		AllowedTypes:        strings.Split(getEnv("ALLOWED_FILE_TYPES", "application/pdf,text/plain"), ","),

		AuditIntervalMinutes: getEnvInt("AUDIT_INTERVAL_MINUTES", 60),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.VectorDimensions <= 0 {
		return nil, fmt.Errorf("VECTOR_DIM must be positive, got %d", cfg.VectorDimensions)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
