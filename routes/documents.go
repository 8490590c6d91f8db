package routes

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bank-research-platform/internal/config"
	"bank-research-platform/internal/logger"
	"bank-research-platform/internal/queue"
	"bank-research-platform/models"
	"bank-research-platform/services"
	"bank-research-platform/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"
)

func SetupDocumentRoutes(router *gin.Engine, cfg *config.Config, documents *services.DocumentService, asynqClient *asynq.Client) {
	router.POST("/documents", func(c *gin.Context) {
		file, err := c.FormFile("file")
		if err != nil {
			utils.RespondWithBadRequest(c, "A file upload is required", gin.H{"error": err.Error()})
			return
		}
		if file.Size > cfg.MaxFileSize {
			utils.RespondWithBadRequest(c, "File exceeds maximum upload size", gin.H{"max_bytes": cfg.MaxFileSize})
			return
		}

		contentType := file.Header.Get("Content-Type")
		if !typeAllowed(cfg.AllowedTypes, contentType) {
			utils.RespondWithBadRequest(c, "Unsupported file type", gin.H{"content_type": contentType})
			return
		}

		title := strings.TrimSpace(c.PostForm("title"))
		if title == "" {
			title = file.Filename
		}

		globalOnly := c.PostForm("global") == "true"
		idrssd := strings.TrimSpace(c.PostForm("idrssd"))
		if globalOnly && idrssd != "" {
			utils.RespondWithBadRequest(c, "global and idrssd are mutually exclusive", nil)
			return
		}

		if err := os.MkdirAll(cfg.FileStorageDir, 0o755); err != nil {
			utils.RespondWithInternalError(c, "Failed to prepare storage", gin.H{"error": err.Error()})
			return
		}
		storedName := uuid.NewString() + filepath.Ext(file.Filename)
		storedPath := filepath.Join(cfg.FileStorageDir, storedName)
		if err := c.SaveUploadedFile(file, storedPath); err != nil {
			utils.RespondWithInternalError(c, "Failed to store file", gin.H{"error": err.Error()})
			return
		}

		doc := &models.ResearchDocument{
			Title:           title,
			Filename:        storedName,
			OriginalName:    file.Filename,
			FilePath:        storedPath,
			ContentType:     contentType,
			Topics:          splitCSV(c.PostForm("topics")),
			BankTypes:       splitCSV(c.PostForm("bank_types")),
			AssetSizeBucket: strings.TrimSpace(c.PostForm("asset_size_bucket")),
			SizeBytes:       file.Size,
		}
		if idrssd != "" {
			doc.IDRSSD = &idrssd
		}

		if err := documents.CreateDocument(c.Request.Context(), doc); err != nil {
			utils.RespondWithInternalError(c, "Failed to create document", gin.H{"error": err.Error()})
			return
		}

		// Small uploads are processed inline; anything larger goes to the
		// worker so the upload request stays fast.
		if file.Size <= cfg.SyncProcessingLimit {
			if err := documents.ProcessDocument(c.Request.Context(), doc.ID); err != nil {
				utils.RespondWithInternalError(c, "Document stored but processing failed", gin.H{"error": err.Error()})
				return
			}
			processed, _ := documents.GetDocument(c.Request.Context(), doc.ID.Hex())
			chunkCount := 0
			if processed != nil {
				chunkCount = processed.ChunkCount
			}
			c.JSON(http.StatusCreated, models.UploadResponse{
				ID:         doc.ID.Hex(),
				Title:      doc.Title,
				Status:     models.StatusCompleted,
				ChunkCount: chunkCount,
				Message:    "Document processed",
			})
			return
		}

		task, err := queue.NewDocumentProcessTask(doc.ID.Hex(), false)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to enqueue processing", gin.H{"error": err.Error()})
			return
		}
		info, err := asynqClient.EnqueueContext(c.Request.Context(), task)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to enqueue processing", gin.H{"error": err.Error()})
			return
		}

		logger.Info("document enqueued for processing", "document_id", doc.ID.Hex(), "task_id", info.ID)
		c.JSON(http.StatusAccepted, models.UploadResponse{
			ID:      doc.ID.Hex(),
			Title:   doc.Title,
			Status:  models.StatusPending,
			TaskID:  info.ID,
			Message: "Document queued for processing",
		})
	})

	router.GET("/documents", func(c *gin.Context) {
		limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)
		docs, err := documents.ListDocuments(c.Request.Context(), limit)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list documents", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
	})

	router.GET("/documents/:id", func(c *gin.Context) {
		doc, err := documents.GetDocument(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				utils.RespondWithNotFound(c, "Document not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to load document", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, doc)
	})

	// Reprocessing deletes all prior chunks for the document and regenerates
	// them with fresh metadata and embeddings.
	router.POST("/documents/:id/reprocess", func(c *gin.Context) {
		doc, err := documents.GetDocument(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				utils.RespondWithNotFound(c, "Document not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to load document", gin.H{"error": err.Error()})
			return
		}

		task, err := queue.NewDocumentProcessTask(doc.ID.Hex(), true)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to enqueue reprocessing", gin.H{"error": err.Error()})
			return
		}
		info, err := asynqClient.EnqueueContext(c.Request.Context(), task)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to enqueue reprocessing", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, models.UploadResponse{
			ID:      doc.ID.Hex(),
			Title:   doc.Title,
			Status:  models.StatusPending,
			TaskID:  info.ID,
			Message: "Document queued for reprocessing",
		})
	})

	router.DELETE("/documents/:id", func(c *gin.Context) {
		if err := documents.DeleteDocument(c.Request.Context(), c.Param("id")); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				utils.RespondWithNotFound(c, "Document not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to delete document", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	})
}

func typeAllowed(allowed []string, contentType string) bool {
	for _, t := range allowed {
		if strings.TrimSpace(t) == contentType {
			return true
		}
	}
	return false
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
