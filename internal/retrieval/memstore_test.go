package retrieval

import (
	"context"
	"sync"
	"time"

	"bank-research-platform/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memChunkStore is an in-memory stand-in for the Mongo-backed store. Usage
// deltas are applied under a single lock, mirroring the atomicity the real
// store gets from single-document updates.
type memChunkStore struct {
	mu      sync.Mutex
	chunks  []models.GroundingChunk
	fetchFn func(ctx context.Context) error // optional hook run before a fetch
}

func newMemChunkStore(chunks ...models.GroundingChunk) *memChunkStore {
	s := &memChunkStore{}
	for i := range chunks {
		if chunks[i].ID.IsZero() {
			chunks[i].ID = primitive.NewObjectID()
		}
		s.chunks = append(s.chunks, chunks[i])
	}
	return s
}

func (s *memChunkStore) FindCandidates(ctx context.Context, filter ChunkFilter) ([]models.GroundingChunk, error) {
	if s.fetchFn != nil {
		if err := s.fetchFn(ctx); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.GroundingChunk
	for i := range s.chunks {
		if filter.Matches(&s.chunks[i]) {
			out = append(out, s.chunks[i])
		}
	}
	return out, nil
}

func (s *memChunkStore) ApplyRetrieval(ctx context.Context, chunkID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findLocked(chunkID)
	if c == nil {
		return false, nil
	}
	c.RetrievalCount++
	c.LastRetrievedAt = &at
	return true, nil
}

func (s *memChunkStore) ApplyFeedback(ctx context.Context, chunkID string, rating int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findLocked(chunkID)
	if c == nil {
		return false, nil
	}
	if rating >= 4 {
		c.PositiveCount++
	}
	if rating <= 2 {
		c.NegativeCount++
	}
	next := NextAvgRating(c.AvgRating, rating)
	c.AvgRating = &next
	return true, nil
}

func (s *memChunkStore) findLocked(chunkID string) *models.GroundingChunk {
	for i := range s.chunks {
		if s.chunks[i].ID.Hex() == chunkID {
			return &s.chunks[i]
		}
	}
	return nil
}

func (s *memChunkStore) get(chunkID string) models.GroundingChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findLocked(chunkID)
	if c == nil {
		return models.GroundingChunk{}
	}
	return *c
}

func strPtr(s string) *string { return &s }
