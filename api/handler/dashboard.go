package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tablewatch/tablewatch/models"
)

// ResultReader is the read-only view over the persistence sink.
// Implemented by store.Store.
type ResultReader interface {
	CountOutcomes(ctx context.Context) (int64, error)
	RecentOutcomes(ctx context.Context, limit int) ([]models.ScrapeOutcome, error)
}

// Dashboard returns the handler for GET /api/v1/dashboard: total stored
// results plus the most recent N as a minimal listing. reader is nil when
// persistence is not configured.
func Dashboard(reader ResultReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if reader == nil {
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
				Error: "persistence not configured",
			})
			return
		}

		limit := 10
		if raw := c.Query("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}

		ctx := c.Request.Context()
		total, err := reader.CountOutcomes(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: errorMessage(err)})
			return
		}

		outcomes, err := reader.RecentOutcomes(ctx, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: errorMessage(err)})
			return
		}

		entries := make([]models.DashboardEntry, 0, len(outcomes))
		for _, o := range outcomes {
			entries = append(entries, models.DashboardEntry{
				URL:       o.URL,
				Verdict:   o.Verdict,
				Status:    o.Status,
				Title:     o.Title,
				Timestamp: o.Timestamp,
			})
		}

		c.JSON(http.StatusOK, models.DashboardResponse{
			Total:   total,
			Results: entries,
		})
	}
}
