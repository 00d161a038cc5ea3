package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tablewatch/tablewatch/models"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Health returns the handler for GET /api/v1/health. Kept outside auth so
// monitoring probes always work.
func Health(startTime time.Time, persistence, alerting bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:      "healthy",
			Uptime:      time.Since(startTime).Round(time.Second).String(),
			Version:     Version,
			Persistence: persistence,
			Alerting:    alerting,
		})
	}
}
