package analytics

import (
	"strings"

	"networkpay/internal/domain"
)

// Criteria narrows a record set beyond the time window. Empty fields and the
// value "all" match everything.
type Criteria struct {
	Type     string `json:"type,omitempty"`
	Status   string `json:"status,omitempty"`
	Currency string `json:"currency,omitempty"`

	// Bounded also drops records dated at or after the interval end. Dashboards
	// have always applied only the lower bound, so this is off by default.
	Bounded bool `json:"bounded,omitempty"`
}

// Filter returns the records dated on or after iv.Start that satisfy c. The
// input slice is not modified.
func Filter(records []domain.Record, iv domain.Interval, c Criteria) []domain.Record {
	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if r.Date.Before(iv.Start) {
			continue
		}
		if c.Bounded && !r.Date.Before(iv.End) {
			continue
		}
		if !matches(c.Type, r.Category) || !matches(c.Status, r.Status) || !matches(c.Currency, r.Currency) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matches(want, got string) bool {
	want = strings.TrimSpace(want)
	if want == "" || strings.EqualFold(want, "all") {
		return true
	}
	return strings.EqualFold(want, got)
}
