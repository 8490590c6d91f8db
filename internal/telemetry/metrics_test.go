package telemetry

import (
	"context"
	"testing"
)

func TestInitMetrics(t *testing.T) {
	m, err := InitMetrics()
	if err != nil {
		t.Fatalf("init metrics failed: %v", err)
	}

	if m.RequestCounter == nil || m.RequestDuration == nil {
		t.Fatal("request instruments not initialized")
	}
	if m.SearchesTotal == nil || m.SearchHits == nil {
		t.Fatal("search instruments not initialized")
	}
	if m.RetrievalsRecorded == nil || m.FeedbackRecorded == nil {
		t.Fatal("bookkeeping instruments not initialized")
	}
	if m.DocumentProcessing == nil {
		t.Fatal("document processing instrument not initialized")
	}
}

func TestRecordHelpers(t *testing.T) {
	m, err := InitMetrics()
	if err != nil {
		t.Fatalf("init metrics failed: %v", err)
	}

	// Without a configured meter provider these are no-ops; they must still
	// accept the values the handlers pass.
	m.RecordRequest("POST", "/search", "success", 0.042)
	m.RecordDocumentProcessing(1.5, "completed")

	// RecordSearch takes the post-truncation hit count, so zero hits from an
	// empty corpus is a valid recording.
	m.RecordSearch(context.Background(), 0)
	m.RecordSearch(context.Background(), 5)
}
