package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter     metric.Int64Counter
	RequestDuration    metric.Float64Histogram
	SearchesTotal      metric.Int64Counter
	SearchHits         metric.Int64Counter
	RetrievalsRecorded metric.Int64Counter
	FeedbackRecorded   metric.Int64Counter
	DocumentProcessing metric.Float64Histogram
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("bank-research-platform")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	searchesTotal, err := meter.Int64Counter(
		"retrieval.searches.total",
		metric.WithDescription("Total vector searches served"),
	)
	if err != nil {
		return nil, err
	}

	searchHits, err := meter.Int64Counter(
		"retrieval.search.hits",
		metric.WithDescription("Total hits returned by vector searches"),
	)
	if err != nil {
		return nil, err
	}

	retrievalsRecorded, err := meter.Int64Counter(
		"retrieval.bookkeeping.retrievals",
		metric.WithDescription("Total retrievals recorded against chunks"),
	)
	if err != nil {
		return nil, err
	}

	feedbackRecorded, err := meter.Int64Counter(
		"retrieval.bookkeeping.feedback",
		metric.WithDescription("Total feedback ratings recorded against chunks"),
	)
	if err != nil {
		return nil, err
	}

	documentProcessing, err := meter.Float64Histogram(
		"document.processing.duration",
		metric.WithDescription("Document processing duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:     requestCounter,
		RequestDuration:    requestDuration,
		SearchesTotal:      searchesTotal,
		SearchHits:         searchHits,
		RetrievalsRecorded: retrievalsRecorded,
		FeedbackRecorded:   feedbackRecorded,
		DocumentProcessing: documentProcessing,
	}, nil
}

// RecordRequest records an HTTP request metric
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.String("status", status),
	)
	m.RequestCounter.Add(ctx, 1, attrs)
	m.RequestDuration.Record(ctx, duration, attrs)
}

// RecordSearch records one vector search and how many hits it returned after
// ranking and truncation. The pre-truncation candidate count lives on the
// search span, not here.
func (m *Metrics) RecordSearch(ctx context.Context, hits int) {
	m.SearchesTotal.Add(ctx, 1)
	m.SearchHits.Add(ctx, int64(hits))
}

// RecordDocumentProcessing records a document ingestion run
func (m *Metrics) RecordDocumentProcessing(duration float64, status string) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.DocumentProcessing.Record(context.Background(), duration, attrs)
}
