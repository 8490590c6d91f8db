package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"bank-research-platform/models"
)

func TestBruteForceIndex_RanksByScore(t *testing.T) {
	store := newMemChunkStore(
		models.GroundingChunk{Content: "exact match", Embedding: []float32{1, 0}},
		models.GroundingChunk{Content: "orthogonal", Embedding: []float32{0, 1}},
		models.GroundingChunk{Content: "diagonal", Embedding: []float32{0.7, 0.7}},
	)
	index := NewBruteForceIndex(store, 0)

	results, err := index.Search(context.Background(), []float32{1, 0}, ChunkFilter{Bank: AnyBank()}, 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.Content != "exact match" {
		t.Fatalf("expected exact match first, got %q", results[0].Chunk.Content)
	}
	if results[0].Score < 0.999 {
		t.Fatalf("expected top score ~1.0, got %f", results[0].Score)
	}
	if results[1].Chunk.Content != "diagonal" {
		t.Fatalf("expected diagonal second, got %q", results[1].Chunk.Content)
	}
	if results[1].Score < 0.70 || results[1].Score > 0.72 {
		t.Fatalf("expected second score ~0.707, got %f", results[1].Score)
	}
}

func TestBruteForceIndex_SortedDescending(t *testing.T) {
	store := newMemChunkStore(
		models.GroundingChunk{Embedding: []float32{0.1, 0.9}},
		models.GroundingChunk{Embedding: []float32{0.9, 0.1}},
		models.GroundingChunk{Embedding: []float32{0.5, 0.5}},
		models.GroundingChunk{Embedding: []float32{1, 0}},
	)
	index := NewBruteForceIndex(store, 0)

	results, err := index.Search(context.Background(), []float32{1, 0}, ChunkFilter{}, 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].Score < results[i].Score {
			t.Fatalf("results not sorted descending at %d: %f < %f", i, results[i-1].Score, results[i].Score)
		}
	}
}

func TestBruteForceIndex_StableTieOrder(t *testing.T) {
	// Identical embeddings produce identical scores; order must follow the
	// candidate fetch order on every call.
	store := newMemChunkStore(
		models.GroundingChunk{Content: "first", Embedding: []float32{1, 0}},
		models.GroundingChunk{Content: "second", Embedding: []float32{1, 0}},
		models.GroundingChunk{Content: "third", Embedding: []float32{1, 0}},
	)
	index := NewBruteForceIndex(store, 0)

	for run := 0; run < 5; run++ {
		results, err := index.Search(context.Background(), []float32{1, 0}, ChunkFilter{}, 10)
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		want := []string{"first", "second", "third"}
		for i, w := range want {
			if results[i].Chunk.Content != w {
				t.Fatalf("run %d: tie order changed: position %d = %q, want %q", run, i, results[i].Chunk.Content, w)
			}
		}
	}
}

func TestBruteForceIndex_LimitBounds(t *testing.T) {
	store := newMemChunkStore(
		models.GroundingChunk{Embedding: []float32{1, 0}},
		models.GroundingChunk{Embedding: []float32{0, 1}},
	)
	index := NewBruteForceIndex(store, 0)

	results, err := index.Search(context.Background(), []float32{1, 0}, ChunkFilter{}, 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results when limit exceeds corpus, got %d", len(results))
	}
}

func TestBruteForceIndex_EmptyCandidatesNotAnError(t *testing.T) {
	index := NewBruteForceIndex(newMemChunkStore(), 0)

	results, err := index.Search(context.Background(), []float32{1, 0}, ChunkFilter{}, 5)
	if err != nil {
		t.Fatalf("empty corpus should not error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestBruteForceIndex_GlobalOnlyScope(t *testing.T) {
	store := newMemChunkStore(
		models.GroundingChunk{Content: "global", Embedding: []float32{1, 0}},
		models.GroundingChunk{Content: "bank", Embedding: []float32{1, 0}, IDRSSD: strPtr("12345")},
	)
	index := NewBruteForceIndex(store, 0)

	results, err := index.Search(context.Background(), []float32{1, 0}, ChunkFilter{Bank: GlobalOnly()}, 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.Content != "global" {
		t.Fatalf("global-only scope returned %d results, want only the global chunk", len(results))
	}
}

func TestBruteForceIndex_BankScope(t *testing.T) {
	store := newMemChunkStore(
		models.GroundingChunk{Content: "global", Embedding: []float32{1, 0}},
		models.GroundingChunk{Content: "ours", Embedding: []float32{1, 0}, IDRSSD: strPtr("12345")},
		models.GroundingChunk{Content: "theirs", Embedding: []float32{1, 0}, IDRSSD: strPtr("99999")},
	)
	index := NewBruteForceIndex(store, 0)

	results, err := index.Search(context.Background(), []float32{1, 0}, ChunkFilter{Bank: ForBank("12345")}, 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.Content != "ours" {
		t.Fatalf("bank scope returned wrong candidates: %+v", results)
	}

	// Unset scope searches everything.
	results, err = index.Search(context.Background(), []float32{1, 0}, ChunkFilter{Bank: AnyBank()}, 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("unscoped search returned %d results, want 3", len(results))
	}
}

func TestBruteForceIndex_BankTypeFilterHonorsAllSentinel(t *testing.T) {
	store := newMemChunkStore(
		models.GroundingChunk{Content: "consumer", Embedding: []float32{1, 0}, BankTypes: []string{"consumer"}},
		models.GroundingChunk{Content: "commercial", Embedding: []float32{1, 0}, BankTypes: []string{"commercial"}},
		models.GroundingChunk{Content: "everyone", Embedding: []float32{1, 0}, BankTypes: []string{"all"}},
	)
	index := NewBruteForceIndex(store, 0)

	results, err := index.Search(context.Background(), []float32{1, 0}, ChunkFilter{BankTypes: []string{"consumer"}}, 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected consumer + all chunks, got %d results", len(results))
	}
	for _, r := range results {
		if r.Chunk.Content == "commercial" {
			t.Fatalf("commercial-only chunk leaked through consumer filter")
		}
	}
}

func TestBruteForceIndex_TopicFilter(t *testing.T) {
	store := newMemChunkStore(
		models.GroundingChunk{Content: "credit", Embedding: []float32{1, 0}, Topics: []string{"credit-quality"}},
		models.GroundingChunk{Content: "liquidity", Embedding: []float32{1, 0}, Topics: []string{"liquidity"}},
	)
	index := NewBruteForceIndex(store, 0)

	results, err := index.Search(context.Background(), []float32{1, 0}, ChunkFilter{Topics: []string{"credit-quality", "capital"}}, 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.Content != "credit" {
		t.Fatalf("topic filter returned wrong candidates: %+v", results)
	}
}

func TestBruteForceIndex_DimensionMismatchFailsWholeCall(t *testing.T) {
	store := newMemChunkStore(
		models.GroundingChunk{Embedding: []float32{1, 0}},
		models.GroundingChunk{Embedding: []float32{1, 0, 0}}, // corrupted
	)
	index := NewBruteForceIndex(store, 0)

	_, err := index.Search(context.Background(), []float32{1, 0}, ChunkFilter{}, 10)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestBruteForceIndex_TimeoutDuringFetch(t *testing.T) {
	store := newMemChunkStore(
		models.GroundingChunk{Embedding: []float32{1, 0}},
	)
	store.fetchFn = func(ctx context.Context) error {
		return context.DeadlineExceeded
	}
	index := NewBruteForceIndex(store, time.Millisecond)

	_, err := index.Search(context.Background(), []float32{1, 0}, ChunkFilter{}, 10)
	if !errors.Is(err, ErrSearchTimeout) {
		t.Fatalf("expected ErrSearchTimeout, got %v", err)
	}
}

func TestBruteForceIndex_TimeoutDuringScan(t *testing.T) {
	chunks := make([]models.GroundingChunk, 100)
	for i := range chunks {
		chunks[i] = models.GroundingChunk{Embedding: []float32{1, 0}}
	}
	store := newMemChunkStore(chunks...)
	// Burn the deadline inside the fetch so the scoring loop sees an
	// already-expired context.
	store.fetchFn = func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}
	index := NewBruteForceIndex(store, time.Millisecond)

	_, err := index.Search(context.Background(), []float32{1, 0}, ChunkFilter{}, 10)
	if !errors.Is(err, ErrSearchTimeout) {
		t.Fatalf("expected ErrSearchTimeout from partial scan, got %v", err)
	}
}

func TestBruteForceIndex_DefaultLimit(t *testing.T) {
	chunks := make([]models.GroundingChunk, DefaultSearchLimit+3)
	for i := range chunks {
		chunks[i] = models.GroundingChunk{Embedding: []float32{1, 0}}
	}
	index := NewBruteForceIndex(newMemChunkStore(chunks...), 0)

	results, err := index.Search(context.Background(), []float32{1, 0}, ChunkFilter{}, 0)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != DefaultSearchLimit {
		t.Fatalf("expected default limit %d, got %d", DefaultSearchLimit, len(results))
	}
}
