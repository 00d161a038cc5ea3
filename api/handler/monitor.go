package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tablewatch/tablewatch/models"
)

// Prober runs selector health probes. Implemented by monitor.Monitor.
type Prober interface {
	Probe(ctx context.Context, targetURL string) (*models.SelectorProbeLog, error)
	ProbeHTML(body string) (*models.SelectorProbeLog, error)
}

// MonitorSelectors returns the handler for POST /api/v1/monitor/selectors.
// A url triggers a live navigation probe (persisted); html probes supplied
// markup offline.
func MonitorSelectors(p Prober) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.MonitorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
			return
		}

		var (
			log *models.SelectorProbeLog
			err error
		)
		switch {
		case req.URL != "":
			log, err = p.Probe(c.Request.Context(), req.URL)
		case req.HTML != "":
			log, err = p.ProbeHTML(req.HTML)
		default:
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "missing url or html"})
			return
		}
		if err != nil {
			c.JSON(mapErrorToStatus(err), models.ErrorResponse{Error: errorMessage(err)})
			return
		}

		c.JSON(http.StatusOK, models.MonitorResponse{
			URL:       log.URL,
			Results:   log.Found,
			Timestamp: log.Timestamp,
		})
	}
}

// ProbeLogReader is the read-only view over stored probe logs. Implemented
// by store.Store.
type ProbeLogReader interface {
	RecentProbeLogs(ctx context.Context, limit int) ([]models.SelectorProbeLog, error)
}

// MonitorLogs returns the handler for GET /api/v1/monitor/selectors/logs:
// the most recent probe runs, newest first, so operators can diff successive
// counts and spot drift. reader is nil when persistence is not configured.
func MonitorLogs(reader ProbeLogReader) gin.HandlerFunc {
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

		logs, err := reader.RecentProbeLogs(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: errorMessage(err)})
			return
		}

		c.JSON(http.StatusOK, models.MonitorLogsResponse{Logs: logs})
	}
}
