package models

import "time"

// SelectorProbeResult is the match count for one registered selector in one
// monitoring run. A count of zero is meaningful: the selector found nothing.
type SelectorProbeResult struct {
	Selector string `json:"selector" bson:"selector"`
	Count    int    `json:"count" bson:"count"`
}

// SelectorProbeLog is one persisted monitoring run: every registered selector
// evaluated once against one page, tied to a single timestamp. Re-running the
// monitor always appends a new log entry, it never updates a prior one.
type SelectorProbeLog struct {
	URL       string                `json:"url" bson:"url"`
	Found     []SelectorProbeResult `json:"results" bson:"found"`
	Timestamp time.Time             `json:"timestamp" bson:"timestamp"`
}
