package services

import (
	"context"
	"time"

	"bank-research-platform/internal/config"
	"bank-research-platform/internal/logger"

	"github.com/go-co-op/gocron"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CorpusAuditor periodically scans the chunk corpus for data-integrity
// drift: embedding vectors whose length disagrees with the deployment
// dimensionality, and documents whose stored chunk_count no longer matches
// the chunks they own. Mismatched embeddings make similarity undefined, so
// finding them before a search does is worth a scheduled scan.
type CorpusAuditor struct {
	config    *config.Config
	chunks    *mongo.Collection
	documents *mongo.Collection
	scheduler *gocron.Scheduler
}

func NewCorpusAuditor(cfg *config.Config, db *mongo.Database) *CorpusAuditor {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()

	return &CorpusAuditor{
		config:    cfg,
		chunks:    db.Collection("grounding_chunks"),
		documents: db.Collection("research_documents"),
		scheduler: s,
	}
}

// Start registers the audit job and launches the scheduler.
func (a *CorpusAuditor) Start() error {
	interval := time.Duration(a.config.AuditIntervalMinutes) * time.Minute
	_, err := a.scheduler.Every(interval).Tag("corpus-audit").Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := a.RunOnce(ctx); err != nil {
			logger.Error("corpus audit failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	a.scheduler.StartAsync()
	logger.Info("corpus auditor started", "interval_minutes", a.config.AuditIntervalMinutes)
	return nil
}

// Stop halts the scheduler.
func (a *CorpusAuditor) Stop() {
	a.scheduler.Stop()
}

// RunOnce executes a single audit pass.
func (a *CorpusAuditor) RunOnce(ctx context.Context) error {
	if err := a.auditDimensions(ctx); err != nil {
		return err
	}
	return a.auditChunkCounts(ctx)
}

// auditDimensions groups chunks by embedding length and warns about any
// group that disagrees with the configured dimensionality.
func (a *CorpusAuditor) auditDimensions(ctx context.Context) error {
	pipeline := mongo.Pipeline{
		{{Key: "$project", Value: bson.M{"dim": bson.M{"$size": "$embedding"}}}},
		{{Key: "$group", Value: bson.M{"_id": "$dim", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := a.chunks.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var groups []struct {
		Dim   int `bson:"_id"`
		Count int `bson:"count"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return err
	}

	for _, g := range groups {
		if g.Dim != a.config.VectorDimensions {
			logger.Warn("chunks with mismatched embedding dimensionality",
				"dimension", g.Dim, "expected", a.config.VectorDimensions, "count", g.Count)
		}
	}
	return nil
}

// auditChunkCounts reconciles each document's chunk_count with the chunks
// that actually reference it.
func (a *CorpusAuditor) auditChunkCounts(ctx context.Context) error {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$document_id", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := a.chunks.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var counts []struct {
		DocumentID interface{} `bson:"_id"`
		Count      int         `bson:"count"`
	}
	if err := cursor.All(ctx, &counts); err != nil {
		return err
	}

	for _, c := range counts {
		res, err := a.documents.UpdateOne(ctx,
			bson.M{"_id": c.DocumentID, "chunk_count": bson.M{"$ne": c.Count}},
			bson.M{"$set": bson.M{"chunk_count": c.Count}})
		if err != nil {
			return err
		}
		if res.ModifiedCount > 0 {
			logger.Warn("reconciled stale chunk_count", "document_id", c.DocumentID, "chunk_count", c.Count)
		}
	}
	return nil
}
