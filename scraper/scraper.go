// Package scraper owns the browser side of the system: launching one
// isolated Chrome process per target, navigating with anti-detection
// launch flags, and extracting HTML, status, and selector counts.
package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/tablewatch/tablewatch/config"
	"github.com/tablewatch/tablewatch/models"
)

// Scraper is a factory for single-use browser sessions. It holds only
// configuration and is safe for concurrent use; every Fetch/ProbeSelectors
// call gets its own process.
type Scraper struct {
	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig
}

// New creates a Scraper. No browser is launched until the first fetch.
func New(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) *Scraper {
	return &Scraper{browserCfg: browserCfg, scraperCfg: scraperCfg}
}

// Fetch runs one full session lifecycle for one target: launch, navigate,
// capture, close. The process is released before Fetch returns on every
// path, success or failure, so concurrent fan-out never leaks handles.
func (s *Scraper) Fetch(ctx context.Context, targetURL, proxy string) (*models.PageCapture, error) {
	start := time.Now()

	sess, err := openSession(s.browserCfg, proxy)
	if err != nil {
		return nil, err
	}
	defer sess.close()

	if err := sess.navigate(ctx, targetURL, s.scraperCfg); err != nil {
		return nil, err
	}

	capture, err := sess.capture(ctx)
	if err != nil {
		return nil, err
	}

	slog.Debug("fetch complete",
		"url", targetURL,
		"durationMs", time.Since(start).Milliseconds(),
	)
	return capture, nil
}

// ProbeSelectors navigates once and evaluates every selector against the
// loaded DOM, returning one count per selector in registry order. Zero is a
// valid result; only the navigation itself can fail.
func (s *Scraper) ProbeSelectors(ctx context.Context, targetURL string, selectors []string) ([]models.SelectorProbeResult, error) {
	sess, err := openSession(s.browserCfg, "")
	if err != nil {
		return nil, err
	}
	defer sess.close()

	if err := sess.navigate(ctx, targetURL, s.scraperCfg); err != nil {
		return nil, err
	}

	found := make([]models.SelectorProbeResult, 0, len(selectors))
	for _, selector := range selectors {
		found = append(found, models.SelectorProbeResult{
			Selector: selector,
			Count:    sess.countSelector(ctx, selector),
		})
	}
	return found, nil
}
