package engine

import (
	"strings"
	"unicode/utf8"

	"github.com/tablewatch/tablewatch/models"
)

// PreviewLimit bounds the HTML preview carried by blocked/captcha outcomes,
// keeping alert payloads and stored documents small.
const PreviewLimit = 500

// Classifier decides the verdict for one successful navigation. It is a
// single swappable decision point: the dispatcher never inspects status or
// body itself, so the heuristic can be strengthened without touching
// orchestration.
type Classifier func(status *int, html string) models.Verdict

// Classify is the default heuristic:
//
//	status 403 or 429        → blocked
//	body contains "captcha"  → captcha (case-insensitive)
//	otherwise                → ok
//
// False positives (a legitimate page mentioning the word) and false negatives
// (an undetected block) are accepted tradeoffs.
func Classify(status *int, html string) models.Verdict {
	if status != nil && (*status == 403 || *status == 429) {
		return models.VerdictBlocked
	}
	if strings.Contains(strings.ToLower(html), "captcha") {
		return models.VerdictCaptcha
	}
	return models.VerdictOK
}

// Preview returns the first PreviewLimit bytes of the body, trimmed back to
// a rune boundary so the result is always valid UTF-8.
func Preview(html string) string {
	if len(html) <= PreviewLimit {
		return html
	}
	cut := PreviewLimit
	for cut > 0 && !utf8.RuneStart(html[cut]) {
		cut--
	}
	return html[:cut]
}
