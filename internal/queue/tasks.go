package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bank-research-platform/internal/logger"
	"bank-research-platform/services"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TaskProcessDocument = "document:process"
)

type DocumentProcessPayload struct {
	DocumentID string `json:"document_id"`
	Reprocess  bool   `json:"reprocess"`
}

// NewDocumentProcessTask creates a task for async document ingestion or
// reprocessing. Reprocessing deletes all prior chunks before regenerating.
func NewDocumentProcessTask(documentID string, reprocess bool) (*asynq.Task, error) {
	payload, err := json.Marshal(DocumentProcessPayload{
		DocumentID: documentID,
		Reprocess:  reprocess,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskProcessDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("critical"),
	), nil
}

// TaskProcessor handles queued ingestion work.
type TaskProcessor struct {
	documents *services.DocumentService
}

func NewTaskProcessor(documents *services.DocumentService) *TaskProcessor {
	return &TaskProcessor{documents: documents}
}

func (p *TaskProcessor) ProcessDocument(ctx context.Context, t *asynq.Task) error {
	var payload DocumentProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	docID, err := primitive.ObjectIDFromHex(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", payload.DocumentID, asynq.SkipRetry)
	}

	logger.Info("processing document task", "document_id", payload.DocumentID, "reprocess", payload.Reprocess)
	return p.documents.ProcessDocument(ctx, docID)
}
