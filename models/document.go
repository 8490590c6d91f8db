package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ResearchDocument is an uploaded filing, policy memo, or research note that
// owns one-to-many GroundingChunks.
type ResearchDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title           string             `bson:"title" json:"title"`
	Filename        string             `bson:"filename" json:"filename"`
	OriginalName    string             `bson:"original_name" json:"original_name"`
	FilePath        string             `bson:"file_path" json:"file_path"`
	ContentType     string             `bson:"content_type" json:"content_type"`
	IDRSSD          *string            `bson:"idrssd,omitempty" json:"idrssd,omitempty"`
	Topics          []string           `bson:"topics,omitempty" json:"topics,omitempty"`
	BankTypes       []string           `bson:"bank_types,omitempty" json:"bank_types,omitempty"`
	AssetSizeBucket string             `bson:"asset_size_bucket,omitempty" json:"asset_size_bucket,omitempty"`
	Status          string             `bson:"status" json:"status"`
	Progress        int                `bson:"progress" json:"progress"`
	ErrorMessage    string             `bson:"error_message,omitempty" json:"error_message,omitempty"`
	ChunkCount      int                `bson:"chunk_count" json:"chunk_count"`
	SizeBytes       int64              `bson:"size_bytes" json:"size_bytes"`
	Pages           int                `bson:"pages,omitempty" json:"pages,omitempty"`
	WordCount       int                `bson:"word_count,omitempty" json:"word_count,omitempty"`
	UploadedAt      time.Time          `bson:"uploaded_at" json:"uploaded_at"`
	ProcessedAt     *time.Time         `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
}

// Document processing status constants.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// UploadResponse is returned after a document upload is accepted.
type UploadResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count,omitempty"`
	TaskID     string `json:"task_id,omitempty"`
	Message    string `json:"message"`
}
