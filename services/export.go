package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"bank-research-platform/models"

	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UsageExportRow is one chunk's usage stats flattened for export.
type UsageExportRow struct {
	ChunkID         string     `json:"chunk_id"`
	DocumentTitle   string     `json:"document_title"`
	ChunkIndex      int        `json:"chunk_index"`
	IDRSSD          string     `json:"idrssd,omitempty"`
	RetrievalCount  int64      `json:"retrieval_count"`
	LastRetrievedAt *time.Time `json:"last_retrieved_at,omitempty"`
	AvgRating       *float64   `json:"avg_rating,omitempty"`
	PositiveCount   int64      `json:"positive_count"`
	NegativeCount   int64      `json:"negative_count"`
}

// UsageExport summarizes retrieval/feedback bookkeeping across the corpus.
type UsageExport struct {
	ExportedAt  time.Time        `json:"exported_at"`
	TotalChunks int              `json:"total_chunks"`
	Rows        []UsageExportRow `json:"rows"`
}

// ExportService builds usage-stat exports for the sales and research teams.
type ExportService struct {
	chunks *mongo.Collection
}

func NewExportService(db *mongo.Database) *ExportService {
	return &ExportService{chunks: db.Collection("grounding_chunks")}
}

// CollectUsage loads usage stats for the most-retrieved chunks.
func (s *ExportService) CollectUsage(ctx context.Context, limit int64) (*UsageExport, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "retrieval_count", Value: -1}}).
		SetProjection(bson.M{"embedding": 0, "content": 0})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := s.chunks.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("usage query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var chunks []models.GroundingChunk
	if err := cursor.All(ctx, &chunks); err != nil {
		return nil, fmt.Errorf("usage decode failed: %w", err)
	}

	export := &UsageExport{
		ExportedAt:  time.Now().UTC(),
		TotalChunks: len(chunks),
		Rows:        make([]UsageExportRow, 0, len(chunks)),
	}
	for _, c := range chunks {
		row := UsageExportRow{
			ChunkID:         c.ID.Hex(),
			DocumentTitle:   c.DocumentTitle,
			ChunkIndex:      c.ChunkIndex,
			RetrievalCount:  c.RetrievalCount,
			LastRetrievedAt: c.LastRetrievedAt,
			AvgRating:       c.AvgRating,
			PositiveCount:   c.PositiveCount,
			NegativeCount:   c.NegativeCount,
		}
		if c.IDRSSD != nil {
			row.IDRSSD = *c.IDRSSD
		}
		export.Rows = append(export.Rows, row)
	}
	return export, nil
}

// BuildExcel renders the usage export as an XLSX workbook.
func (s *ExportService) BuildExcel(export *UsageExport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Chunk Usage"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"Chunk ID", "Document Title", "Chunk Index", "IDRSSD",
		"Retrieval Count", "Last Retrieved", "Avg Rating", "Positive", "Negative",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIdx, row := range export.Rows {
		values := []interface{}{
			row.ChunkID, row.DocumentTitle, row.ChunkIndex, row.IDRSSD,
			row.RetrievalCount, formatTimePtr(row.LastRetrievedAt), formatFloatPtr(row.AvgRating),
			row.PositiveCount, row.NegativeCount,
		}
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatFloatPtr(f *float64) interface{} {
	if f == nil {
		return ""
	}
	return *f
}
