// Package engine implements the batch orchestration core: the fan-out
// dispatcher and the block/captcha classifier it drives.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tablewatch/tablewatch/models"
)

// Fetcher runs one isolated browser session for one target. Implemented by
// scraper.Scraper; kept as an interface here so the engine never imports the
// browser stack and tests can inject failures.
type Fetcher interface {
	Fetch(ctx context.Context, targetURL, proxy string) (*models.PageCapture, error)
}

// ResultStore is the append-only persistence sink for scrape outcomes.
type ResultStore interface {
	SaveOutcome(ctx context.Context, outcome *models.ScrapeOutcome) error
}

// Alerter notifies an external channel about anomalies. Delivery is
// best-effort; implementations must never block on or surface failures.
type Alerter interface {
	Alert(severity models.Severity, message string)
}

// Config controls dispatcher behavior.
type Config struct {
	// NavigationTimeout bounds each target's session. No retry on expiry;
	// the target is marked as an error outcome.
	NavigationTimeout time.Duration

	// MaxSessions caps concurrent sessions per batch. 0 means unbounded.
	MaxSessions int

	// TitleExtractor labels ok outcomes with the page title for the
	// dashboard. Optional; outcomes carry no title without it.
	TitleExtractor func(html string) string
}

// Dispatcher fans a batch of targets out to independent browser sessions and
// collects one terminal outcome per target. One target's failure never
// aborts its siblings.
type Dispatcher struct {
	fetcher  Fetcher
	store    ResultStore // nil when persistence is not configured
	alerter  Alerter     // nil when alerting is not configured
	classify Classifier
	cfg      Config

	sideEffects sync.WaitGroup
}

// NewDispatcher wires the dispatcher's collaborators. store and alerter may
// be nil; classify defaults to the built-in heuristic.
func NewDispatcher(fetcher Fetcher, store ResultStore, alerter Alerter, classify Classifier, cfg Config) *Dispatcher {
	if classify == nil {
		classify = Classify
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	return &Dispatcher{
		fetcher:  fetcher,
		store:    store,
		alerter:  alerter,
		classify: classify,
		cfg:      cfg,
	}
}

// Dispatch runs the batch and returns once every target has reached a
// terminal state. Outcomes are collected, not streamed, and their order need
// not match the input. Persistence and alerting are issued per outcome
// before return but their completion is not awaited.
func (d *Dispatcher) Dispatch(ctx context.Context, targets []models.ScrapeTarget) ([]*models.ScrapeOutcome, error) {
	if len(targets) == 0 {
		return nil, models.NewScrapeError(
			models.ErrCodeInvalidInput,
			"at least one target is required",
			nil,
		)
	}

	var sem chan struct{}
	if d.cfg.MaxSessions > 0 {
		sem = make(chan struct{}, d.cfg.MaxSessions)
	}

	results := make(chan *models.ScrapeOutcome, len(targets))
	var wg sync.WaitGroup

	for _, target := range targets {
		wg.Add(1)
		go func(t models.ScrapeTarget) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			results <- d.scrapeOne(ctx, t)
		}(target)
	}

	wg.Wait()
	close(results)

	outcomes := make([]*models.ScrapeOutcome, 0, len(targets))
	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// scrapeOne takes one target through its full lifecycle:
// session → classify → issue persist/alert → outcome.
func (d *Dispatcher) scrapeOne(ctx context.Context, target models.ScrapeTarget) *models.ScrapeOutcome {
	navCtx, cancel := context.WithTimeout(ctx, d.cfg.NavigationTimeout)
	defer cancel()

	capture, err := d.fetcher.Fetch(navCtx, target.URL, target.Proxy)
	if err != nil {
		outcome := &models.ScrapeOutcome{
			URL:          target.URL,
			Verdict:      models.VerdictError,
			ErrorMessage: err.Error(),
			Timestamp:    time.Now().UTC(),
		}
		d.alert(models.SeverityError,
			fmt.Sprintf("scrape failed for %s: %v", target.URL, err))
		return outcome
	}

	verdict := d.classify(capture.Status, capture.HTML)
	outcome := &models.ScrapeOutcome{
		URL:       target.URL,
		Status:    capture.Status,
		Verdict:   verdict,
		Timestamp: time.Now().UTC(),
	}

	switch verdict {
	case models.VerdictOK:
		outcome.HTML = capture.HTML
		outcome.Title = d.title(capture.HTML)
	default:
		outcome.HTMLPreview = Preview(capture.HTML)
		d.alert(models.SeverityWarning,
			fmt.Sprintf("block or captcha detected at %s (status: %s, verdict: %s)",
				target.URL, formatStatus(capture.Status), verdict))
	}

	d.persist(outcome)
	return outcome
}

func (d *Dispatcher) title(html string) string {
	if d.cfg.TitleExtractor == nil {
		return ""
	}
	return d.cfg.TitleExtractor(html)
}

// persist issues the store write as detached background work. Failures are
// logged and swallowed: persistence never blocks or fails a batch.
func (d *Dispatcher) persist(outcome *models.ScrapeOutcome) {
	if d.store == nil || outcome.Verdict == models.VerdictError {
		return
	}
	d.sideEffects.Add(1)
	go func() {
		defer d.sideEffects.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.store.SaveOutcome(ctx, outcome); err != nil {
			slog.Warn("outcome persistence failed",
				"url", outcome.URL,
				"verdict", outcome.Verdict,
				"error", err,
			)
		}
	}()
}

func (d *Dispatcher) alert(severity models.Severity, message string) {
	if d.alerter == nil {
		return
	}
	d.alerter.Alert(severity, message)
}

// Drain blocks until all issued persistence work has finished. Called during
// graceful shutdown so in-flight writes are not cut off with the process.
func (d *Dispatcher) Drain() {
	d.sideEffects.Wait()
}

func formatStatus(status *int) string {
	if status == nil {
		return "none"
	}
	return fmt.Sprintf("%d", *status)
}
