// Package monitor detects selector drift: it evaluates a fixed registry of
// CSS selectors against a target page and records match counts over time.
// A previously nonzero selector dropping to zero signals the site changed
// its markup and downstream extraction is silently broken.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tablewatch/tablewatch/models"
)

// SelectorProber navigates to a page and counts matches for each selector
// against the live DOM. Implemented by scraper.Scraper.
type SelectorProber interface {
	ProbeSelectors(ctx context.Context, targetURL string, selectors []string) ([]models.SelectorProbeResult, error)
}

// ProbeStore is the append-only sink for probe logs.
type ProbeStore interface {
	SaveProbeLog(ctx context.Context, log *models.SelectorProbeLog) error
}

// Monitor runs selector health probes. It does not classify blocks and does
// not persist page HTML; it is purely a structural-health signal.
type Monitor struct {
	registry *Registry
	prober   SelectorProber
	store    ProbeStore // nil when persistence is not configured

	sideEffects sync.WaitGroup
}

// New wires a Monitor. store may be nil.
func New(registry *Registry, prober SelectorProber, store ProbeStore) *Monitor {
	return &Monitor{registry: registry, prober: prober, store: store}
}

// Registry exposes the monitor's selector registry (append-only).
func (m *Monitor) Registry() *Registry {
	return m.registry
}

// Probe navigates once and snapshots the match count of every registered
// selector, persisting the run as one log entry tied to one timestamp.
// Each run is an independent snapshot, never an update to a prior one.
func (m *Monitor) Probe(ctx context.Context, targetURL string) (*models.SelectorProbeLog, error) {
	found, err := m.prober.ProbeSelectors(ctx, targetURL, m.registry.Selectors())
	if err != nil {
		return nil, err
	}

	log := &models.SelectorProbeLog{
		URL:       targetURL,
		Found:     found,
		Timestamp: time.Now().UTC(),
	}

	m.persist(log)
	return log, nil
}

// persist issues the log write as detached background work. Failures are
// logged and swallowed: persistence never blocks or fails a probe.
func (m *Monitor) persist(log *models.SelectorProbeLog) {
	if m.store == nil {
		return
	}
	m.sideEffects.Add(1)
	go func() {
		defer m.sideEffects.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.store.SaveProbeLog(ctx, log); err != nil {
			slog.Warn("probe log persistence failed", "url", log.URL, "error", err)
		}
	}()
}

// Drain blocks until all issued persistence work has finished. Called during
// graceful shutdown so in-flight writes are not cut off with the process.
func (m *Monitor) Drain() {
	m.sideEffects.Wait()
}
