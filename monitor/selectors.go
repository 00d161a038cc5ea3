package monitor

import (
	"fmt"

	"github.com/andybalholm/cascadia"
)

// DefaultSelectors are the known DOM locations for game-result data across
// the site layouts seen in production (Evolution Gaming roadmaps, generic
// history widgets, data attributes). New entries are appended as sites
// change; existing ones are never silently removed, so probe logs stay
// comparable over time.
var DefaultSelectors = []string{
	".roadmap-results .result",
	".history-results .result-item",
	".game-history .result",
	"[class*='result'][class*='history']",
	"[class*='roadmap'] [class*='result']",
	".bead-road .bead",
	".big-road .result",
	"[data-result]",
	".result-b, .result-p, .result-t",
	"div[class*='banker'], div[class*='player'], div[class*='tie']",
}

type entry struct {
	raw     string
	matcher cascadia.Selector
}

// Registry is an ordered, append-only set of CSS selectors. Every selector
// is syntax-checked with cascadia at insertion so a typo surfaces at startup
// instead of as a silent zero count.
type Registry struct {
	entries []entry
}

// NewRegistry builds a registry from the given selectors.
func NewRegistry(selectors ...string) (*Registry, error) {
	r := &Registry{}
	for _, s := range selectors {
		if err := r.Add(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add appends one selector. Selectors cannot be removed.
func (r *Registry) Add(selector string) error {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return fmt.Errorf("registry: invalid selector %q: %w", selector, err)
	}
	r.entries = append(r.entries, entry{raw: selector, matcher: matcher})
	return nil
}

// Selectors returns the raw selector strings in registration order.
func (r *Registry) Selectors() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.raw
	}
	return out
}

// Len reports the number of registered selectors.
func (r *Registry) Len() int {
	return len(r.entries)
}
