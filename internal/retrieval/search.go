package retrieval

import (
	"context"
	"errors"
	"sort"
	"time"

	"bank-research-platform/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultSearchLimit is used when a caller passes a non-positive limit.
const DefaultSearchLimit = 5

// ScoredChunk pairs a candidate with its cosine similarity to the query.
type ScoredChunk struct {
	Chunk models.GroundingChunk
	Score float64
}

// VectorIndex ranks chunks against a query embedding. The brute-force
// implementation scans the filtered candidate set; an approximate
// nearest-neighbor index can be swapped in behind this interface without
// touching callers.
type VectorIndex interface {
	Search(ctx context.Context, query []float32, filter ChunkFilter, limit int) ([]ScoredChunk, error)
}

// BruteForceIndex scores every candidate matching the filter. Cheap and
// exact at research-corpus scale; it does not pretend to scale beyond it.
type BruteForceIndex struct {
	store   ChunkStore
	timeout time.Duration
}

// NewBruteForceIndex wires a brute-force index over the given store. A
// non-zero timeout bounds the whole search, including the candidate fetch.
func NewBruteForceIndex(store ChunkStore, timeout time.Duration) *BruteForceIndex {
	return &BruteForceIndex{store: store, timeout: timeout}
}

func (b *BruteForceIndex) Search(ctx context.Context, query []float32, filter ChunkFilter, limit int) ([]ScoredChunk, error) {
	tracer := otel.Tracer("retrieval")
	ctx, span := tracer.Start(ctx, "retrieval.vector_search")
	defer span.End()

	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	candidates, err := b.store.FindCandidates(ctx, filter)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrSearchTimeout
		}
		return nil, err
	}
	span.SetAttributes(attribute.Int("retrieval.candidates", len(candidates)))

	scored := make([]ScoredChunk, 0, len(candidates))
	for i := range candidates {
		// A ranking truncated by the deadline would bias toward whichever
		// chunks were scored first, so an expired context fails the call.
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return nil, ErrSearchTimeout
			}
			return nil, ctxErr
		}

		score, err := CosineSimilarity(query, candidates[i].Embedding)
		if err != nil {
			return nil, err
		}
		scored = append(scored, ScoredChunk{Chunk: candidates[i], Score: score})
	}

	// Stable sort keeps equal-score ties in candidate fetch order, so
	// repeated calls on the same corpus rank identically.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	if len(scored) > 0 {
		span.SetAttributes(
			attribute.Int("retrieval.results", len(scored)),
			attribute.Float64("retrieval.top_score", scored[0].Score),
		)
	}

	return scored, nil
}
