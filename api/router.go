// Package api wires the HTTP surface: routes, middleware, handlers.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tablewatch/tablewatch/api/handler"
	"github.com/tablewatch/tablewatch/api/middleware"
	"github.com/tablewatch/tablewatch/config"
)

// Deps carries the constructed collaborators the handlers need. Reader may
// be nil (no persistence configured).
type Deps struct {
	Dispatcher handler.Dispatcher
	Recognizer handler.Recognizer
	Prober     handler.Prober
	Reader     handler.ResultReader
	ProbeLogs  handler.ProbeLogReader
	Alerting   bool
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(deps Deps, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(startTime, deps.Reader != nil, deps.Alerting))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Batch scrape + OCR side path
	protected.POST("/scrape", handler.Scrape(deps.Dispatcher, deps.Recognizer))

	// Selector health monitor
	protected.POST("/monitor/selectors", handler.MonitorSelectors(deps.Prober))
	protected.GET("/monitor/selectors/logs", handler.MonitorLogs(deps.ProbeLogs))

	// Read-only view over the persistence sink
	protected.GET("/dashboard", handler.Dashboard(deps.Reader))

	return r
}
