package models

import "time"

// ScrapeResponse is the success response for the batch scrape path.
// Per-target failures are encoded inside Results, never as an HTTP error.
type ScrapeResponse struct {
	Results []*ScrapeOutcome `json:"results"`
}

// OCRResponse is the success response for the OCR path.
type OCRResponse struct {
	OCR string `json:"ocr"`
}

// ErrorResponse is the body for request-level failures (invalid input,
// OCR failure, engine-wide errors). Shape kept from the original service.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MonitorResponse is the response for a selector monitoring run.
type MonitorResponse struct {
	URL       string                `json:"url,omitempty"`
	Results   []SelectorProbeResult `json:"results"`
	Timestamp time.Time             `json:"timestamp"`
}

// MonitorLogsResponse lists stored probe runs, newest first.
type MonitorLogsResponse struct {
	Logs []SelectorProbeLog `json:"logs"`
}

// DashboardEntry is one row of the recent-results listing.
type DashboardEntry struct {
	URL       string    `json:"url"`
	Verdict   Verdict   `json:"verdict"`
	Status    *int      `json:"status,omitempty"`
	Title     string    `json:"title,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DashboardResponse is the read-only view over the persistence sink.
type DashboardResponse struct {
	Total   int64            `json:"total"`
	Results []DashboardEntry `json:"results"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	Version     string `json:"version"`
	Persistence bool   `json:"persistence"`
	Alerting    bool   `json:"alerting"`
}
