package analytics

import (
	"strings"

	"github.com/shopspring/decimal"

	"networkpay/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Aggregate reduces records to totals. It does not look at dates, so callers
// pass an already filtered set.
func Aggregate(records []domain.Record) domain.SummaryStats {
	stats := domain.SummaryStats{
		Total:         decimal.Zero,
		ByCategory:    make(map[string]decimal.Decimal),
		ByStatus:      make(map[string]decimal.Decimal),
		PendingAmount: decimal.Zero,
		PaidAmount:    decimal.Zero,
		PreviousTotal: decimal.Zero,
	}

	for _, r := range records {
		stats.Total = stats.Total.Add(r.Amount)
		stats.Count++

		category := strings.ToLower(r.Category)
		stats.ByCategory[category] = stats.ByCategory[category].Add(r.Amount)

		status := strings.ToLower(r.Status)
		stats.ByStatus[status] = stats.ByStatus[status].Add(r.Amount)

		switch {
		case status == domain.StatusPending:
			stats.PendingAmount = stats.PendingAmount.Add(r.Amount)
		case domain.IsSettled(status):
			stats.PaidAmount = stats.PaidAmount.Add(r.Amount)
		}
	}

	return stats
}

// Summarize aggregates the records inside iv and compares the total with the
// equal-length window immediately before it.
func Summarize(records []domain.Record, iv domain.Interval, c Criteria) domain.SummaryStats {
	stats := Aggregate(Filter(records, iv, c))
	stats.Interval = iv

	prevCriteria := c
	prevCriteria.Bounded = true
	prev := PreviousInterval(iv)
	if prev.Start.Before(Epoch) {
		prev.Start = Epoch
	}
	if prev.End.After(prev.Start) {
		stats.PreviousTotal = Aggregate(Filter(records, prev, prevCriteria)).Total
	}
	stats.GrowthPercent = GrowthPercent(stats.Total, stats.PreviousTotal)

	return stats
}

// GrowthPercent is (current-previous)/previous*100, or 0 when previous is 0.
func GrowthPercent(current, previous decimal.Decimal) float64 {
	if previous.IsZero() {
		return 0
	}
	g, _ := current.Sub(previous).Div(previous).Mul(hundred).Round(2).Float64()
	return g
}
