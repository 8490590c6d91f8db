package retrieval

import (
	"context"
	"fmt"
	"time"

	"bank-research-platform/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChunkStore provides candidate access for vector search.
type ChunkStore interface {
	// FindCandidates returns every chunk matching the filter, in stable
	// insertion order. Brute-force search scores the full candidate set.
	FindCandidates(ctx context.Context, filter ChunkFilter) ([]models.GroundingChunk, error)
}

// UsageStore applies retrieval and feedback deltas. Implementations must
// apply each delta atomically at the storage layer (a single document
// update, never load-mutate-save) so concurrent sessions cannot lose
// increments.
type UsageStore interface {
	// ApplyRetrieval increments the retrieval counter and stamps the
	// retrieval time. Returns false when the chunk no longer exists.
	ApplyRetrieval(ctx context.Context, chunkID string, at time.Time) (bool, error)
	// ApplyFeedback folds a 1-5 rating into the chunk's feedback counters
	// and running average. Returns false when the chunk no longer exists.
	ApplyFeedback(ctx context.Context, chunkID string, rating int) (bool, error)
}

// MongoChunkStore backs the chunk corpus with a single grounding_chunks
// collection.
type MongoChunkStore struct {
	collection *mongo.Collection
}

func NewMongoChunkStore(db *mongo.Database) *MongoChunkStore {
	return &MongoChunkStore{collection: db.Collection("grounding_chunks")}
}

// Collection exposes the underlying collection for ingestion bulk writes.
func (s *MongoChunkStore) Collection() *mongo.Collection {
	return s.collection
}

func (s *MongoChunkStore) FindCandidates(ctx context.Context, filter ChunkFilter) ([]models.GroundingChunk, error) {
	// Sort by _id so equal-score ties break deterministically across calls.
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.collection.Find(ctx, filter.Mongo(), opts)
	if err != nil {
		return nil, fmt.Errorf("candidate fetch failed: %w", err)
	}
	defer cursor.Close(ctx)

	var candidates []models.GroundingChunk
	if err := cursor.All(ctx, &candidates); err != nil {
		return nil, fmt.Errorf("candidate decode failed: %w", err)
	}
	return candidates, nil
}

func (s *MongoChunkStore) ApplyRetrieval(ctx context.Context, chunkID string, at time.Time) (bool, error) {
	objID, err := primitive.ObjectIDFromHex(chunkID)
	if err != nil {
		return false, nil
	}

	res, err := s.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{
		"$inc": bson.M{"retrieval_count": 1},
		"$set": bson.M{"last_retrieved_at": at},
	})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoChunkStore) ApplyFeedback(ctx context.Context, chunkID string, rating int) (bool, error) {
	objID, err := primitive.ObjectIDFromHex(chunkID)
	if err != nil {
		return false, nil
	}

	// A single pipeline update keeps the counters and the running average in
	// one atomic document write; $inc cannot be mixed into a pipeline, so the
	// counters use $add with an $ifNull guard instead.
	set := bson.M{
		"avg_rating": bson.M{"$cond": bson.A{
			bson.M{"$eq": bson.A{bson.M{"$ifNull": bson.A{"$avg_rating", nil}}, nil}},
			rating,
			bson.M{"$divide": bson.A{bson.M{"$add": bson.A{"$avg_rating", rating}}, 2}},
		}},
	}
	if rating >= 4 {
		set["positive_count"] = bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$positive_count", 0}}, 1}}
	}
	if rating <= 2 {
		set["negative_count"] = bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$negative_count", 0}}, 1}}
	}

	res, err := s.collection.UpdateOne(ctx, bson.M{"_id": objID}, mongo.Pipeline{
		{{Key: "$set", Value: set}},
	})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}
