package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bank-research-platform/internal/ai"
	"bank-research-platform/internal/config"
	"bank-research-platform/internal/logger"
	"bank-research-platform/internal/retrieval"
	"bank-research-platform/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// DocumentService owns the research-document lifecycle: ingestion, chunking,
// embedding, reprocessing, and deletion. Chunks are immutable after insert
// except for their usage stats; reprocessing deletes all prior chunks for the
// document and regenerates them.
type DocumentService struct {
	config     *config.Config
	documents  *mongo.Collection
	chunkStore *retrieval.MongoChunkStore
	embedder   ai.Embedder
	chunker    *ChunkingService
}

func NewDocumentService(cfg *config.Config, db *mongo.Database, chunkStore *retrieval.MongoChunkStore, embedder ai.Embedder) *DocumentService {
	return &DocumentService{
		config:     cfg,
		documents:  db.Collection("research_documents"),
		chunkStore: chunkStore,
		embedder:   embedder,
		chunker:    NewChunkingService(cfg.MaxChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize),
	}
}

// CreateDocument inserts a pending document record for an uploaded file.
func (s *DocumentService) CreateDocument(ctx context.Context, doc *models.ResearchDocument) error {
	doc.Status = models.StatusPending
	doc.UploadedAt = time.Now().UTC()

	res, err := s.documents.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// GetDocument loads a single document by hex id.
func (s *DocumentService) GetDocument(ctx context.Context, id string) (*models.ResearchDocument, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}
	var doc models.ResearchDocument
	if err := s.documents.FindOne(ctx, bson.M{"_id": objID}).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns documents sorted newest first.
func (s *DocumentService) ListDocuments(ctx context.Context, limit int64) ([]models.ResearchDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "uploaded_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := s.documents.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []models.ResearchDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// ProcessDocument runs the full ingestion pipeline for a document: extract
// text, chunk, embed, and replace the document's chunks. It is also the
// reprocess path; any chunks from a previous run are deleted before the new
// set is inserted.
func (s *DocumentService) ProcessDocument(ctx context.Context, docID primitive.ObjectID) error {
	tracer := otel.Tracer("ingestion")
	ctx, span := tracer.Start(ctx, "ingestion.process_document")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", docID.Hex()))

	var doc models.ResearchDocument
	if err := s.documents.FindOne(ctx, bson.M{"_id": docID}).Decode(&doc); err != nil {
		return fmt.Errorf("document not found: %w", err)
	}

	if err := s.updateStatus(ctx, docID, models.StatusProcessing, ""); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	result, err := s.extract(&doc)
	if err != nil {
		s.updateStatus(ctx, docID, models.StatusFailed, err.Error())
		return fmt.Errorf("text extraction failed: %w", err)
	}

	textChunks := s.chunker.ChunkPages(result.Pages)
	span.SetAttributes(attribute.Int("document.chunks", len(textChunks)))

	now := time.Now().UTC()
	chunks := make([]interface{}, 0, len(textChunks))
	for _, tc := range textChunks {
		vec, err := s.embedder.Embed(ctx, tc.Text)
		if err != nil {
			s.updateStatus(ctx, docID, models.StatusFailed, err.Error())
			return fmt.Errorf("embedding chunk %d failed: %w", tc.Order, err)
		}

		chunks = append(chunks, models.GroundingChunk{
			DocumentID: docID,
			Content:    tc.Text,
			ChunkIndex: tc.Order,
			PageNumber: tc.Page,
			Embedding:  vec,
			// Document metadata is copied onto every chunk so search filters
			// never need a join. The copy is refreshed on reprocess.
			DocumentTitle:   doc.Title,
			Topics:          doc.Topics,
			BankTypes:       doc.BankTypes,
			AssetSizeBucket: doc.AssetSizeBucket,
			IDRSSD:          doc.IDRSSD,
			CreatedAt:       now,
		})
	}

	if err := s.replaceChunks(ctx, docID, chunks); err != nil {
		s.updateStatus(ctx, docID, models.StatusFailed, err.Error())
		return fmt.Errorf("failed to store chunks: %w", err)
	}

	update := bson.M{"$set": bson.M{
		"status":       models.StatusCompleted,
		"progress":     100,
		"chunk_count":  len(chunks),
		"pages":        len(result.Pages),
		"word_count":   result.WordCount,
		"processed_at": now,
	}}
	if _, err := s.documents.UpdateOne(ctx, bson.M{"_id": docID}, update); err != nil {
		return fmt.Errorf("failed to finalize document: %w", err)
	}

	logger.Info("document processed", "document_id", docID.Hex(), "chunks", len(chunks), "pages", len(result.Pages))
	return nil
}

// DeleteDocument removes a document and every chunk it owns.
func (s *DocumentService) DeleteDocument(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return mongo.ErrNoDocuments
	}

	if _, err := s.chunkStore.Collection().DeleteMany(ctx, bson.M{"document_id": objID}); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	res, err := s.documents.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *DocumentService) extract(doc *models.ResearchDocument) (*ExtractionResult, error) {
	if strings.Contains(doc.ContentType, "pdf") {
		return ExtractPDFText(doc.FilePath)
	}
	return ExtractPlainText(doc.FilePath)
}

// replaceChunks deletes all chunks for the document and inserts the new set.
// On a replica set the delete+insert runs in one transaction so an in-flight
// search never sees a half-deleted corpus; standalone Mongo falls back to
// sequential writes, with the document held in processing status while the
// swap happens.
func (s *DocumentService) replaceChunks(ctx context.Context, docID primitive.ObjectID, chunks []interface{}) error {
	col := s.chunkStore.Collection()

	session, err := col.Database().Client().StartSession()
	if err == nil {
		defer session.EndSession(ctx)
		_, txErr := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			if _, err := col.DeleteMany(sc, bson.M{"document_id": docID}); err != nil {
				return nil, err
			}
			if len(chunks) == 0 {
				return nil, nil
			}
			return col.InsertMany(sc, chunks)
		})
		if txErr == nil {
			return nil
		}
		logger.Warn("transactional chunk swap unavailable, falling back to sequential writes", "error", txErr)
	}

	if _, err := col.DeleteMany(ctx, bson.M{"document_id": docID}); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	_, err = col.InsertMany(ctx, chunks)
	return err
}

func (s *DocumentService) updateStatus(ctx context.Context, docID primitive.ObjectID, status, errorMessage string) error {
	set := bson.M{"status": status}

	switch status {
	case models.StatusPending:
		set["progress"] = 0
	case models.StatusProcessing:
		set["progress"] = 50
	case models.StatusCompleted:
		set["progress"] = 100
	case models.StatusFailed:
		set["progress"] = 0
	}

	if errorMessage != "" {
		set["error_message"] = errorMessage
	}

	_, err := s.documents.UpdateOne(ctx, bson.M{"_id": docID}, bson.M{"$set": set})
	return err
}
