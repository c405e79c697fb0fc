package analytics

import (
	"strings"
	"time"

	"networkpay/internal/domain"
)

// TimeRange is the symbolic lookback selector sent by dashboards.
type TimeRange string

const (
	AllTime     TimeRange = "all-time"
	ThisWeek    TimeRange = "this-week"
	LastWeek    TimeRange = "last-week"
	ThisMonth   TimeRange = "this-month"
	LastMonth   TimeRange = "last-month"
	ThisQuarter TimeRange = "this-quarter"
	LastQuarter TimeRange = "last-quarter"
)

// TimeRanges lists every accepted token.
var TimeRanges = []TimeRange{AllTime, ThisWeek, LastWeek, ThisMonth, LastMonth, ThisQuarter, LastQuarter}

// Epoch is the start of the all-time window.
var Epoch = time.Unix(0, 0).UTC()

// ParseTimeRange normalises a query value. Unknown values map to AllTime and
// ok is false.
func ParseTimeRange(s string) (TimeRange, bool) {
	t := TimeRange(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range TimeRanges {
		if t == known {
			return t, true
		}
	}
	return AllTime, false
}

// Resolve maps a token to a rolling window ending at now.
//
// The "last-*" tokens are a longer rolling window, not the previous calendar
// period: last-week covers the last fourteen days, including this week.
func Resolve(token TimeRange, now time.Time) domain.Interval {
	var start time.Time
	switch token {
	case ThisWeek:
		start = now.AddDate(0, 0, -7)
	case LastWeek:
		start = now.AddDate(0, 0, -14)
	case ThisMonth:
		start = now.AddDate(0, -1, 0)
	case LastMonth:
		start = now.AddDate(0, -2, 0)
	case ThisQuarter:
		start = now.AddDate(0, -3, 0)
	case LastQuarter:
		start = now.AddDate(0, -6, 0)
	default:
		start = Epoch
	}
	if start.After(now) {
		start = now
	}
	return domain.Interval{Start: start, End: now}
}

// PreviousInterval returns the window of equal length that ends where iv starts.
func PreviousInterval(iv domain.Interval) domain.Interval {
	return domain.Interval{
		Start: iv.Start.Add(-iv.Duration()),
		End:   iv.Start,
	}
}

// Granularity is the calendar unit used for chart buckets.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

// GranularityFor picks the bucket size a dashboard uses for a token.
func GranularityFor(token TimeRange) Granularity {
	switch token {
	case ThisWeek, LastWeek:
		return Day
	case ThisQuarter, LastQuarter:
		return Week
	default:
		return Month
	}
}

// ParseGranularity returns the granularity named by s, or false.
func ParseGranularity(s string) (Granularity, bool) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case Day, Week, Month:
		return g, true
	}
	return "", false
}
