package routes

import (
	"errors"
	"net/http"

	"bank-research-platform/internal/ai"
	"bank-research-platform/internal/config"
	"bank-research-platform/internal/retrieval"
	"bank-research-platform/internal/telemetry"
	"bank-research-platform/models"
	"bank-research-platform/utils"

	"github.com/gin-gonic/gin"
)

// SearchRequest is the grounding-search request body. The bank clause is
// three-valued: neither idrssd nor global_only set means "search everything";
// global_only means "only bank-agnostic content"; idrssd means "only this
// bank". Setting both is rejected.
type SearchRequest struct {
	Query      string    `json:"query"`
	Embedding  []float32 `json:"embedding,omitempty"`
	IDRSSD     string    `json:"idrssd,omitempty"`
	GlobalOnly bool      `json:"global_only,omitempty"`
	BankTypes  []string  `json:"bank_types,omitempty"`
	Topics     []string  `json:"topics,omitempty"`
	Limit      int       `json:"limit,omitempty"`
}

// FeedbackRequest carries a 1-5 rating for a chunk that grounded a response.
type FeedbackRequest struct {
	Rating int `json:"rating" binding:"required,min=1,max=5"`
}

func SetupSearchRoutes(router *gin.Engine, cfg *config.Config, index retrieval.VectorIndex, bookkeeper *retrieval.Bookkeeper, embedder ai.Embedder, metrics *telemetry.Metrics) {
	router.POST("/search", func(c *gin.Context) {
		var req SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		if req.GlobalOnly && req.IDRSSD != "" {
			utils.RespondWithBadRequest(c, "global_only and idrssd are mutually exclusive", nil)
			return
		}
		if req.Query == "" && len(req.Embedding) == 0 {
			utils.RespondWithBadRequest(c, "either query text or an embedding is required", nil)
			return
		}

		limit := req.Limit
		if limit <= 0 {
			limit = cfg.DefaultSearchLimit
		}
		if limit > cfg.MaxSearchLimit {
			limit = cfg.MaxSearchLimit
		}

		queryVec := req.Embedding
		if len(queryVec) == 0 {
			vec, err := embedder.Embed(c.Request.Context(), req.Query)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to embed query", gin.H{"error": err.Error()})
				return
			}
			queryVec = vec
		}

		filter := retrieval.ChunkFilter{
			Bank:      retrieval.AnyBank(),
			BankTypes: req.BankTypes,
			Topics:    req.Topics,
		}
		if req.GlobalOnly {
			filter.Bank = retrieval.GlobalOnly()
		} else if req.IDRSSD != "" {
			filter.Bank = retrieval.ForBank(req.IDRSSD)
		}

		scored, err := index.Search(c.Request.Context(), queryVec, filter, limit)
		if err != nil {
			switch {
			case errors.Is(err, retrieval.ErrDimensionMismatch):
				utils.RespondWithDimensionMismatch(c, err.Error())
			case errors.Is(err, retrieval.ErrSearchTimeout):
				utils.RespondWithTimeout(c, "Search timed out; retry with a narrower filter or smaller limit")
			default:
				utils.RespondWithInternalError(c, "Search failed", gin.H{"error": err.Error()})
			}
			return
		}

		metrics.RecordSearch(c.Request.Context(), len(scored))

		hits := make([]models.SearchHit, 0, len(scored))
		for _, sc := range scored {
			hits = append(hits, models.SearchHit{
				ChunkID:       sc.Chunk.ID.Hex(),
				Content:       sc.Chunk.Content,
				DocumentID:    sc.Chunk.DocumentID.Hex(),
				DocumentTitle: sc.Chunk.DocumentTitle,
				PageNumber:    sc.Chunk.PageNumber,
				Score:         sc.Score,
			})
		}

		c.JSON(http.StatusOK, gin.H{"hits": hits, "count": len(hits)})
	})

	// Searching alone records nothing; the report generator calls this once
	// per chunk it actually used.
	router.POST("/chunks/:id/retrieval", func(c *gin.Context) {
		if err := bookkeeper.RecordRetrieval(c.Request.Context(), c.Param("id")); err != nil {
			utils.RespondWithInternalError(c, "Failed to record retrieval", gin.H{"error": err.Error()})
			return
		}
		metrics.RetrievalsRecorded.Add(c.Request.Context(), 1)
		c.JSON(http.StatusOK, gin.H{"status": "recorded"})
	})

	router.POST("/chunks/:id/feedback", func(c *gin.Context) {
		var req FeedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Rating must be an integer between 1 and 5", gin.H{"error": err.Error()})
			return
		}

		if err := bookkeeper.RecordFeedback(c.Request.Context(), c.Param("id"), req.Rating); err != nil {
			if errors.Is(err, retrieval.ErrInvalidRating) {
				utils.RespondWithBadRequest(c, err.Error(), nil)
				return
			}
			utils.RespondWithInternalError(c, "Failed to record feedback", gin.H{"error": err.Error()})
			return
		}
		metrics.FeedbackRecorded.Add(c.Request.Context(), 1)
		c.JSON(http.StatusOK, gin.H{"status": "recorded"})
	})
}
