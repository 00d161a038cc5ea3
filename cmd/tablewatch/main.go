package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tablewatch/tablewatch/api"
	"github.com/tablewatch/tablewatch/config"
	"github.com/tablewatch/tablewatch/engine"
	"github.com/tablewatch/tablewatch/monitor"
	"github.com/tablewatch/tablewatch/ocr"
	"github.com/tablewatch/tablewatch/scraper"
	"github.com/tablewatch/tablewatch/store"
	"github.com/tablewatch/tablewatch/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("tablewatch starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxSessions", cfg.Engine.MaxSessions,
	)

	// ── 3. Persistence sink (optional) ──────────────────────────────
	var st *store.Store
	if cfg.Store.MongoURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		s, err := store.Connect(ctx, cfg.Store)
		cancel()
		if err != nil {
			// Degrade rather than die: the engine runs without persistence.
			slog.Warn("mongodb unavailable, persistence disabled", "error", err)
		} else {
			st = s
			slog.Info("connected to mongodb", "database", cfg.Store.Database)
		}
	} else {
		slog.Info("no MONGO_URL configured, persistence disabled")
	}

	// ── 4. Alerting gateway (optional, silent no-op without a URL) ──
	alerter := webhook.NewAlerter(cfg.Alert.WebhookURL)
	if alerter.Enabled() {
		slog.Info("alert webhook configured")
	}

	// ── 5. Browser session factory ──────────────────────────────────
	sc := scraper.New(cfg.Browser, cfg.Scraper)

	// ── 6. Batch dispatcher ─────────────────────────────────────────
	// The nil checks avoid handing the dispatcher a typed-nil interface.
	var resultStore engine.ResultStore
	if st != nil {
		resultStore = st
	}
	dispatcher := engine.NewDispatcher(sc, resultStore, alerter, nil, engine.Config{
		NavigationTimeout: cfg.Scraper.NavigationTimeout,
		MaxSessions:       cfg.Engine.MaxSessions,
		TitleExtractor:    scraper.ExtractTitle,
	})

	// ── 7. Selector health monitor ──────────────────────────────────
	registry, err := monitor.NewRegistry(monitor.DefaultSelectors...)
	if err != nil {
		slog.Error("invalid selector registry", "error", err)
		os.Exit(1)
	}
	var probeStore monitor.ProbeStore
	if st != nil {
		probeStore = st
	}
	mon := monitor.New(registry, sc, probeStore)

	// ── 8. OCR bridge ───────────────────────────────────────────────
	bridge := ocr.NewBridge(cfg.OCR, cfg.Browser.DefaultProxy, nil, alerter)

	// ── 9. Router + HTTP server ─────────────────────────────────────
	startTime := time.Now()
	deps := api.Deps{
		Dispatcher: dispatcher,
		Recognizer: bridge,
		Prober:     mon,
		Alerting:   alerter.Enabled(),
	}
	if st != nil {
		deps.Reader = st
		deps.ProbeLogs = st
	}
	router := api.NewRouter(deps, cfg, startTime)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 10. Graceful shutdown ───────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// Let in-flight fire-and-forget persistence finish before disconnecting.
	dispatcher.Drain()
	mon.Drain()
	if st != nil {
		if err := st.Close(ctx); err != nil {
			slog.Warn("mongodb disconnect failed", "error", err)
		}
	}
	slog.Info("tablewatch stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
