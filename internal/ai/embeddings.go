package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"bank-research-platform/internal/config"
	"bank-research-platform/internal/logger"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// Embedder turns text into an embedding vector. The embedding model is an
// external collaborator; everything downstream only assumes a fixed
// dimensionality per deployment.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimensions is the corpus-wide embedding length this client produces.
	Dimensions() int
}

// EmbeddingClient wraps the Google Generative AI embedding model with a
// circuit breaker, a client-side rate limiter, and an optional Redis cache
// keyed by text hash so repeated queries skip the API entirely.
type EmbeddingClient struct {
	client     *genai.Client
	model      string
	dimensions int
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	cache      *redis.Client
	cacheTTL   time.Duration
}

// NewEmbeddingClient builds the embedding client. rdb may be nil to disable
// caching.
func NewEmbeddingClient(ctx context.Context, cfg *config.Config, rdb *redis.Client) (*EmbeddingClient, error) {
	if cfg.EmbeddingsProvider != "" && cfg.EmbeddingsProvider != "google" {
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "EmbeddingsAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	// Free-tier embedding quota is roughly 1500 RPM; leave headroom.
	limiter := rate.NewLimiter(rate.Limit(20), 10)

	cache := rdb
	if cfg.EmbeddingCacheTTL <= 0 {
		cache = nil
	}

	return &EmbeddingClient{
		client:     client,
		model:      cfg.GoogleEmbeddingsModel,
		dimensions: cfg.VectorDimensions,
		breaker:    breaker,
		limiter:    limiter,
		cache:      cache,
		cacheTTL:   time.Duration(cfg.EmbeddingCacheTTL) * time.Second,
	}, nil
}

func (ec *EmbeddingClient) Dimensions() int {
	return ec.dimensions
}

// Embed returns the embedding vector for the given text.
func (ec *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	tracer := otel.Tracer("embeddings")
	ctx, span := tracer.Start(ctx, "embeddings.embed")
	defer span.End()
	span.SetAttributes(
		attribute.String("embeddings.model", ec.model),
		attribute.Int("embeddings.text_length", len(text)),
	)

	cacheKey := embeddingCacheKey(ec.model, text)
	if vec, ok := ec.cacheGet(ctx, cacheKey); ok {
		span.SetAttributes(attribute.Bool("embeddings.cache_hit", true))
		return vec, nil
	}

	if err := ec.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := ec.breaker.Execute(func() (interface{}, error) {
		model := ec.client.EmbeddingModel(ec.model)
		resp, err := model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, err
		}
		if resp.Embedding == nil {
			return nil, fmt.Errorf("no embedding returned")
		}
		return resp.Embedding.Values, nil
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("embeddings.error", true))
		return nil, err
	}

	vec := result.([]float32)
	if len(vec) != ec.dimensions {
		return nil, fmt.Errorf("embedding model returned %d dimensions, deployment expects %d", len(vec), ec.dimensions)
	}

	ec.cacheSet(ctx, cacheKey, vec)
	return vec, nil
}

func (ec *EmbeddingClient) cacheGet(ctx context.Context, key string) ([]float32, bool) {
	if ec.cache == nil {
		return nil, false
	}
	raw, err := ec.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func (ec *EmbeddingClient) cacheSet(ctx context.Context, key string, vec []float32) {
	if ec.cache == nil {
		return
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	// Cache failures are invisible to callers; the API call already succeeded.
	if err := ec.cache.Set(ctx, key, raw, ec.cacheTTL).Err(); err != nil {
		logger.Debug("embedding cache write failed", "error", err)
	}
}

func embeddingCacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embed:" + model + ":" + hex.EncodeToString(sum[:])
}

// Close releases the underlying API client.
func (ec *EmbeddingClient) Close() error {
	if ec.client != nil {
		return ec.client.Close()
	}
	return nil
}
