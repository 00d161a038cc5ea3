// Package ocr is the side path for image targets: fetch the image bytes,
// hand them to an opaque text-extraction capability, return the text.
// It is mutually exclusive with page scraping; a request is routed to
// exactly one of the two.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tablewatch/tablewatch/config"
	"github.com/tablewatch/tablewatch/models"
)

// Extractor is the opaque image-to-text capability: bytes in, text out,
// or an error. The engine never looks inside it.
type Extractor func(ctx context.Context, image []byte) (string, error)

// Alerter matches engine.Alerter; redeclared here so the bridge carries no
// engine dependency.
type Alerter interface {
	Alert(severity models.Severity, message string)
}

// Bridge wires image fetching to text extraction and reports failures.
type Bridge struct {
	fetcher *imageFetcher
	extract Extractor
	alerter Alerter // nil when alerting is not configured
	timeout time.Duration
}

// NewBridge creates a Bridge. extract may be nil, in which case every
// recognition fails with OCR_FAILED ("not configured"); alerter may be nil.
func NewBridge(cfg config.OCRConfig, proxy string, extract Extractor, alerter Alerter) *Bridge {
	if extract == nil && cfg.ServiceURL != "" {
		extract = RemoteExtractor(cfg.ServiceURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Bridge{
		fetcher: newImageFetcher(proxy),
		extract: extract,
		alerter: alerter,
		timeout: timeout,
	}
}

// Recognize fetches the image and extracts its text. Any fetch or extraction
// failure raises one alert and returns a typed OCR_FAILED error; no scrape
// outcome is ever created on this path.
func (b *Bridge) Recognize(ctx context.Context, imageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if b.extract == nil {
		return "", b.fail(imageURL, "no text extractor configured", nil)
	}

	image, err := b.fetcher.fetch(ctx, imageURL)
	if err != nil {
		return "", b.fail(imageURL, "failed to fetch image", err)
	}

	text, err := b.extract(ctx, image)
	if err != nil {
		return "", b.fail(imageURL, "text extraction failed", err)
	}
	return text, nil
}

func (b *Bridge) fail(imageURL, msg string, err error) error {
	if b.alerter != nil {
		b.alerter.Alert(models.SeverityError,
			fmt.Sprintf("ocr failed for %s: %s: %v", imageURL, msg, err))
	}
	return models.NewScrapeError(models.ErrCodeOCR, msg, err)
}

// RemoteExtractor returns an Extractor that posts image bytes to an OCR
// service and reads back {"text": "..."}.
func RemoteExtractor(serviceURL string) Extractor {
	client := &http.Client{}
	return func(ctx context.Context, image []byte) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, serviceURL, bytes.NewReader(image))
		if err != nil {
			return "", fmt.Errorf("ocr: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/octet-stream")

		resp, err := client.Do(req)
		if err != nil {
			return "", fmt.Errorf("ocr: request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return "", fmt.Errorf("ocr: service returned status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
		if err != nil {
			return "", fmt.Errorf("ocr: read response: %w", err)
		}

		var out struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return "", fmt.Errorf("ocr: decode response: %w", err)
		}
		return out.Text, nil
	}
}
