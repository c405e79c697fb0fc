package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"networkpay/internal/domain"
)

// MaxBuckets caps a single series. Group keeps the most recent MaxBuckets
// units of a longer span; FitGranularity picks a unit that avoids that.
const MaxBuckets = 1000

// Group buckets records by calendar unit across span. Units without records
// are present with zero sums so charts get a continuous axis. A zero span is
// replaced by the min..max of the record dates (in UTC).
func Group(records []domain.Record, g Granularity, span domain.Interval) []domain.ChartBucket {
	loc := time.UTC
	if span.IsZero() {
		if len(records) == 0 {
			return []domain.ChartBucket{}
		}
		span = recordSpan(records)
	} else {
		loc = span.End.Location()
	}
	if !span.End.After(span.Start) {
		return []domain.ChartBucket{}
	}

	categories := categoriesIn(records, span)

	cursor := truncate(span.Start.In(loc), g)
	if earliest := earliestBucket(span.End.In(loc), g); cursor.Before(earliest) {
		cursor = earliest
	}

	buckets := make([]domain.ChartBucket, 0, 16)
	for ; cursor.Before(span.End); cursor = next(cursor, g) {
		sums := make(map[string]decimal.Decimal, len(categories))
		for _, c := range categories {
			sums[c] = decimal.Zero
		}
		buckets = append(buckets, domain.ChartBucket{
			Label: Label(cursor, g),
			Start: cursor,
			Sums:  sums,
			Total: decimal.Zero,
		})
	}

	index := make(map[int64]int, len(buckets))
	for i, b := range buckets {
		index[b.Start.Unix()] = i
	}

	for _, r := range records {
		if r.Date.Before(span.Start) || !r.Date.Before(span.End) {
			continue
		}
		i, ok := index[truncate(r.Date.In(loc), g).Unix()]
		if !ok {
			continue
		}
		category := strings.ToLower(r.Category)
		buckets[i].Sums[category] = buckets[i].Sums[category].Add(r.Amount)
		buckets[i].Total = buckets[i].Total.Add(r.Amount)
	}

	return buckets
}

// Label formats a bucket start for display.
func Label(t time.Time, g Granularity) string {
	switch g {
	case Day:
		return t.Format("Jan 02")
	case Week:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	default:
		return t.Format("Jan 2006")
	}
}

func truncate(t time.Time, g Granularity) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch g {
	case Day:
		return day
	case Week:
		// ISO weeks start on Monday.
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	default:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	}
}

func next(t time.Time, g Granularity) time.Time {
	switch g {
	case Day:
		return t.AddDate(0, 0, 1)
	case Week:
		return t.AddDate(0, 0, 7)
	default:
		return t.AddDate(0, 1, 0)
	}
}

// FitGranularity returns g, or the next coarser unit while span needs more
// than MaxBuckets buckets at g. Month is returned when nothing fits.
func FitGranularity(g Granularity, span domain.Interval) Granularity {
	for g != Month && !fits(g, span) {
		if g == Day {
			g = Week
		} else {
			g = Month
		}
	}
	return g
}

func fits(g Granularity, span domain.Interval) bool {
	if !span.End.After(span.Start) {
		return true
	}
	loc := span.End.Location()
	return !truncate(span.Start.In(loc), g).Before(earliestBucket(span.End.In(loc), g))
}

// earliestBucket is the start of the oldest of the MaxBuckets units that end
// at end (exclusive).
func earliestBucket(end time.Time, g Granularity) time.Time {
	last := truncate(end.Add(-time.Nanosecond), g)
	n := MaxBuckets - 1
	switch g {
	case Day:
		return last.AddDate(0, 0, -n)
	case Week:
		return last.AddDate(0, 0, -7*n)
	default:
		return last.AddDate(0, -n, 0)
	}
}

func recordSpan(records []domain.Record) domain.Interval {
	lo, hi := records[0].Date, records[0].Date
	for _, r := range records[1:] {
		if r.Date.Before(lo) {
			lo = r.Date
		}
		if r.Date.After(hi) {
			hi = r.Date
		}
	}
	return domain.Interval{Start: lo.UTC(), End: hi.UTC().Add(time.Nanosecond)}
}

func categoriesIn(records []domain.Record, span domain.Interval) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		if r.Date.Before(span.Start) || !r.Date.Before(span.End) {
			continue
		}
		seen[strings.ToLower(r.Category)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
