package routes

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"bank-research-platform/services"
	"bank-research-platform/utils"

	"github.com/gin-gonic/gin"
)

func SetupUsageRoutes(router *gin.Engine, exports *services.ExportService) {
	// Retrieval/feedback bookkeeping rollup, for the research and sales teams.
	router.GET("/usage/export", func(c *gin.Context) {
		format := c.DefaultQuery("format", "json")
		limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "1000"), 10, 64)

		export, err := exports.CollectUsage(c.Request.Context(), limit)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to collect usage stats", gin.H{"error": err.Error()})
			return
		}

		switch format {
		case "json":
			c.JSON(http.StatusOK, export)
		case "excel":
			workbook, err := exports.BuildExcel(export)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to build workbook", gin.H{"error": err.Error()})
				return
			}
			filename := fmt.Sprintf("chunk-usage-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
			c.Header("Content-Disposition", "attachment; filename="+filename)
			c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
		default:
			utils.RespondWithBadRequest(c, "format must be json or excel", gin.H{"format": format})
		}
	})
}
