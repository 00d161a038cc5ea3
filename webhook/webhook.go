// Package webhook delivers alert events to a configured endpoint.
// Delivery is strictly best-effort: no retries, no deduplication, and a
// failed delivery is logged and dropped, never surfaced to the caller.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tablewatch/tablewatch/models"
)

// payload is the wire contract: a single human-readable text field,
// compatible with Slack-style incoming webhooks.
type payload struct {
	Text string `json:"text"`
}

// Alerter posts alert events to one webhook URL. An Alerter built with an
// empty URL is a silent no-op, which is how absent configuration degrades.
type Alerter struct {
	url    string
	client *http.Client
}

// NewAlerter creates an Alerter for the given webhook URL ("" disables it).
func NewAlerter(url string) *Alerter {
	return &Alerter{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether a webhook URL is configured.
func (a *Alerter) Enabled() bool {
	return a.url != ""
}

// Alert issues one delivery attempt asynchronously and returns immediately.
// The triggering scrape is never delayed or failed by alerting.
func (a *Alerter) Alert(severity models.Severity, message string) {
	if a.url == "" {
		return
	}
	event := models.AlertEvent{
		Severity:  severity,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.deliver(ctx, event); err != nil {
			slog.Warn("alert delivery failed",
				"severity", event.Severity,
				"error", err,
			)
			return
		}
		slog.Debug("alert delivered", "severity", event.Severity)
	}()
}

// deliver sends one event synchronously.
func (a *Alerter) deliver(ctx context.Context, event models.AlertEvent) error {
	body, err := json.Marshal(payload{
		Text: fmt.Sprintf("[%s] %s", event.Severity, event.Message),
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Tablewatch-Webhook/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
