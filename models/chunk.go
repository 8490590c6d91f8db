package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BankTypeAll is the sentinel tag meaning a chunk applies to every bank type.
const BankTypeAll = "all"

// GroundingChunk is the atomic retrievable unit for report grounding.
// Document metadata (title, topics, bank association) is denormalized onto
// each chunk at ingestion time so searches filter without a join; the copy is
// a point-in-time snapshot and is rewritten whenever the parent document is
// reprocessed.
type GroundingChunk struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DocumentID primitive.ObjectID `bson:"document_id" json:"document_id"`
	Content    string             `bson:"content" json:"content"`
	ChunkIndex int                `bson:"chunk_index" json:"chunk_index"`
	PageNumber int                `bson:"page_number,omitempty" json:"page_number,omitempty"`
	Embedding  []float32          `bson:"embedding" json:"-"`

	// Denormalized filter fields.
	DocumentTitle   string   `bson:"document_title" json:"document_title"`
	Topics          []string `bson:"topics,omitempty" json:"topics,omitempty"`
	BankTypes       []string `bson:"bank_types,omitempty" json:"bank_types,omitempty"`
	AssetSizeBucket string   `bson:"asset_size_bucket,omitempty" json:"asset_size_bucket,omitempty"`
	// IDRSSD is the FFIEC bank identifier; nil means global, cross-bank content.
	IDRSSD *string `bson:"idrssd,omitempty" json:"idrssd,omitempty"`

	// Usage stats, mutated only by retrieval bookkeeping.
	RetrievalCount  int64      `bson:"retrieval_count" json:"retrieval_count"`
	LastRetrievedAt *time.Time `bson:"last_retrieved_at,omitempty" json:"last_retrieved_at,omitempty"`
	AvgRating       *float64   `bson:"avg_rating,omitempty" json:"avg_rating,omitempty"`
	PositiveCount   int64      `bson:"positive_count" json:"positive_count"`
	NegativeCount   int64      `bson:"negative_count" json:"negative_count"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// IsGlobal reports whether the chunk carries no bank association.
func (c *GroundingChunk) IsGlobal() bool {
	return c.IDRSSD == nil
}

// SearchHit is a chunk paired with its similarity score, as returned to the
// report-generation layer.
type SearchHit struct {
	ChunkID       string  `json:"chunk_id"`
	Content       string  `json:"content"`
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	PageNumber    int     `json:"page_number,omitempty"`
	Score         float64 `json:"score"`
}
