package retrieval

import (
	"context"
	"time"

	"bank-research-platform/internal/logger"
)

// Bookkeeper records chunk usage after a search result is actually used to
// ground a response. Searching alone records nothing; the caller decides
// whether a presented chunk counted as a retrieval.
type Bookkeeper struct {
	store UsageStore
}

func NewBookkeeper(store UsageStore) *Bookkeeper {
	return &Bookkeeper{store: store}
}

// RecordRetrieval bumps the chunk's retrieval counter and stamps the
// retrieval time. Not idempotent: two calls count two retrievals. A chunk
// deleted by reprocessing mid-flight is a warn-logged no-op, since the
// retrieval already happened from the caller's point of view.
func (bk *Bookkeeper) RecordRetrieval(ctx context.Context, chunkID string) error {
	found, err := bk.store.ApplyRetrieval(ctx, chunkID, time.Now().UTC())
	if err != nil {
		return err
	}
	if !found {
		logger.Warn("retrieval recorded against missing chunk", "chunk_id", chunkID)
	}
	return nil
}

// RecordFeedback folds a 1-5 rating into the chunk's usage stats. Ratings of
// 4 or 5 count as positive, 1 or 2 as negative, 3 as neither.
//
// The running average is (prior + rating) / 2, which weights recent feedback
// more heavily than a true mean. Downstream ranking heuristics were tuned
// against that decay, so the formula is kept as-is.
func (bk *Bookkeeper) RecordFeedback(ctx context.Context, chunkID string, rating int) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}

	found, err := bk.store.ApplyFeedback(ctx, chunkID, rating)
	if err != nil {
		return err
	}
	if !found {
		logger.Warn("feedback recorded against missing chunk", "chunk_id", chunkID, "rating", rating)
	}
	return nil
}

// NextAvgRating is the running-average fold shared by every UsageStore
// implementation: no prior average adopts the rating, otherwise the prior and
// the rating are averaged pairwise.
func NextAvgRating(prior *float64, rating int) float64 {
	if prior == nil {
		return float64(rating)
	}
	return (*prior + float64(rating)) / 2
}
