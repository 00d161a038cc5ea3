package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tablewatch/tablewatch/models"
)

// ProbeHTML evaluates the registry against supplied markup without any
// navigation. Useful for checking stored captures offline; runs are not
// persisted since they carry no live-page timestamp semantics.
func (m *Monitor) ProbeHTML(body string) (*models.SelectorProbeLog, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("monitor: parse html: %w", err)
	}

	found := make([]models.SelectorProbeResult, 0, len(m.registry.entries))
	for _, e := range m.registry.entries {
		found = append(found, models.SelectorProbeResult{
			Selector: e.raw,
			Count:    doc.FindMatcher(e.matcher).Length(),
		})
	}

	return &models.SelectorProbeLog{
		Found:     found,
		Timestamp: time.Now().UTC(),
	}, nil
}
