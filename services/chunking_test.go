package services

import (
	"strings"
	"testing"
)

func TestChunkText_EmptyInput(t *testing.T) {
	cs := NewChunkingService(1000, 200, 100)

	if chunks := cs.ChunkText(""); len(chunks) != 0 {
		t.Fatalf("empty text should produce no chunks, got %d", len(chunks))
	}
	if chunks := cs.ChunkText("   \n\n  "); len(chunks) != 0 {
		t.Fatalf("whitespace-only text should produce no chunks, got %d", len(chunks))
	}
}

func TestChunkText_SmallTextSingleChunk(t *testing.T) {
	cs := NewChunkingService(1000, 200, 100)

	chunks := cs.ChunkText("Net interest margin widened in the third quarter.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Order != 0 {
		t.Fatalf("first chunk order = %d, want 0", chunks[0].Order)
	}
}

func TestChunkText_SplitsLongText(t *testing.T) {
	cs := NewChunkingService(200, 50, 50)

	paragraph := strings.Repeat("Deposit betas remain elevated across the peer group. ", 4)
	text := strings.Join([]string{paragraph, paragraph, paragraph, paragraph}, "\n\n")

	chunks := cs.ChunkText(text)
	if len(chunks) < 2 {
		t.Fatalf("expected long text to split into multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Order != i {
			t.Fatalf("chunk %d has order %d", i, c.Order)
		}
		if len(strings.TrimSpace(c.Text)) == 0 {
			t.Fatalf("chunk %d is empty", i)
		}
	}
}

func TestChunkPages_KeepsPageNumbers(t *testing.T) {
	cs := NewChunkingService(1000, 200, 100)

	pages := []string{
		"Balance sheet commentary for the quarter.",
		"Credit quality trends and classified assets.",
	}
	chunks := cs.ChunkPages(pages)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Page != 1 || chunks[1].Page != 2 {
		t.Fatalf("page numbers not preserved: %d, %d", chunks[0].Page, chunks[1].Page)
	}
	// Order is global across the document, not per page.
	if chunks[0].Order != 0 || chunks[1].Order != 1 {
		t.Fatalf("order not global: %d, %d", chunks[0].Order, chunks[1].Order)
	}
}

func TestChunkPages_SkipsEmptyPages(t *testing.T) {
	cs := NewChunkingService(1000, 200, 100)

	chunks := cs.ChunkPages([]string{"", "Only page with content.", ""})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Page != 2 {
		t.Fatalf("chunk page = %d, want 2", chunks[0].Page)
	}
}
