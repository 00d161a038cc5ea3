package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/tablewatch/tablewatch/config"
	"github.com/tablewatch/tablewatch/models"
)

// session owns exactly one browser process for the lifetime of one
// navigation. It is never shared across targets; Close is guaranteed to run
// on every exit path so no Chrome process outlives its target.
type session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// openSession launches a fresh browser process and opens its single page.
//
// Launch configuration mirrors what defense scripts probe for: the sandbox is
// disabled for containerized execution, and the AutomationControlled blink
// feature plus the enable-automation switch are stripped so the process does
// not advertise itself as driven.
func openSession(cfg config.BrowserConfig, proxy string) (*session, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if proxy == "" {
		proxy = cfg.DefaultProxy
	}
	if proxy != "" {
		l = l.Proxy(proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-setuid-sandbox"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to open page",
			err,
		)
	}

	// Stealth JS must be installed before the first navigation or the
	// target's detection scripts run against an unmasked navigator.
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without stealth",
			"error", err,
		)
	}

	return &session{launcher: l, browser: browser, page: page}, nil
}

// navigate loads the target and waits for minimal DOM readiness (not network
// idle, to bound latency on chatty pages). The returned status is best-effort:
// nil when the browser cannot report one.
func (s *session) navigate(ctx context.Context, targetURL string, cfg config.ScraperConfig) error {
	p := s.page.Context(ctx)

	s.setReferer(targetURL)

	if err := p.Navigate(targetURL); err != nil {
		return categorizeError(err, "navigation to target URL failed")
	}

	if err := p.WaitDOMStable(cfg.DOMStableWindow, 0.1); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return categorizeError(ctxErr, "page did not reach DOM-ready state")
		}
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"url", targetURL, "error", err,
		)
	}
	return nil
}

// capture extracts the rendered HTML and the main document's HTTP status.
//
// The status comes from the performance navigation timeline rather than CDP
// network events: event listeners would have to be registered before
// navigation and conflict with other Network-domain consumers on newer
// Chromium builds, while the timeline is always readable after the fact.
func (s *session) capture(ctx context.Context) (*models.PageCapture, error) {
	p := s.page.Context(ctx)

	html, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to extract page HTML")
	}

	var status *int
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		if code := res.Value.Int(); code > 0 {
			status = &code
		}
	}

	return &models.PageCapture{HTML: html, Status: status}, nil
}

// countSelector returns how many elements match one CSS selector in the
// loaded DOM. An unmatched selector is a count of zero, not an error.
func (s *session) countSelector(ctx context.Context, selector string) int {
	elements, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		slog.Debug("selector evaluation failed", "selector", selector, "error", err)
		return 0
	}
	return len(elements)
}

// setReferer masks the empty referer of a fresh browser with a Google search
// for the target's hostname, which is what an organic visit would carry.
func (s *session) setReferer(targetURL string) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return
	}
	headers := proto.NetworkHeaders{
		"Referer": gson.New("https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())),
	}
	_ = proto.NetworkSetExtraHTTPHeaders{Headers: headers}.Call(s.page)
}

// close tears the whole process down. Safe to call exactly once per session;
// runs on every exit path via defer in the callers.
func (s *session) close() {
	if err := s.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
	s.launcher.Kill()
	s.launcher.Cleanup()
}

// categorizeError wraps raw errors into typed ScrapeErrors so the engine and
// API layers can map them to verdicts and HTTP status codes.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
