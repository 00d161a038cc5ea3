package models

import "time"

// Verdict is the classifier's decision for one fetched page.
type Verdict string

const (
	// VerdictOK means the page loaded and nothing adversarial was detected.
	VerdictOK Verdict = "ok"

	// VerdictBlocked means the target answered with a blocking status (403/429).
	VerdictBlocked Verdict = "blocked"

	// VerdictCaptcha means the page body carries a captcha challenge.
	VerdictCaptcha Verdict = "captcha"

	// VerdictError means the navigation itself failed (timeout, crash, DNS...).
	VerdictError Verdict = "error"
)

// ScrapeTarget is one unit of fan-out work: a URL plus an optional proxy.
type ScrapeTarget struct {
	URL   string
	Proxy string
}

// ScrapeOutcome is the terminal record for one target in one batch.
// It is created once, never mutated afterwards, and persisted verbatim
// for non-error verdicts.
type ScrapeOutcome struct {
	URL string `json:"url" bson:"url"`

	// Status is the HTTP status of the main document response. Absent when
	// the browser could not report one (e.g. non-HTTP navigation failures).
	Status *int `json:"status,omitempty" bson:"status,omitempty"`

	Verdict Verdict `json:"verdict" bson:"verdict"`

	// HTML is the full rendered document. Set only for verdict "ok".
	HTML string `json:"html,omitempty" bson:"html,omitempty"`

	// HTMLPreview is the first 500 bytes of the body, set only on
	// blocked/captcha so alert payloads and stored documents stay bounded.
	HTMLPreview string `json:"htmlPreview,omitempty" bson:"html_preview,omitempty"`

	// Title is the page <title>, extracted for the dashboard listing.
	Title string `json:"title,omitempty" bson:"title,omitempty"`

	ErrorMessage string    `json:"error,omitempty" bson:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp" bson:"timestamp"`
}

// Severity grades an alert event.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// AlertEvent describes one anomaly handed to the alerting gateway.
// Events are transient: delivered (best-effort) and discarded, never stored.
type AlertEvent struct {
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// PageCapture is what a browser session yields after a successful navigation.
type PageCapture struct {
	HTML   string
	Status *int
}
