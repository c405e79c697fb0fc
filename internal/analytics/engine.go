// Package analytics implements the earnings pipeline: time-range resolution,
// filtering, aggregation, pagination and chart bucketing over record sets.
// Every step is a pure function of its input.
package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"networkpay/internal/domain"
)

// Query is what a dashboard asks for.
type Query struct {
	TimeRange   TimeRange
	Criteria    Criteria
	Page        int
	PageSize    int
	Granularity Granularity
}

// Report bundles the three views built from one filtered set.
type Report struct {
	TimeRange   TimeRange                  `json:"time_range"`
	Interval    domain.Interval            `json:"interval"`
	Granularity Granularity                `json:"granularity"`
	Summary     domain.SummaryStats        `json:"summary"`
	History     domain.Page[domain.Record] `json:"history"`
	Chart       []domain.ChartBucket       `json:"chart"`
}

// EngineConfig tunes an Engine.
type EngineConfig struct {
	// StrictUpperBound makes every filter drop records dated at or after the
	// end of the resolved interval.
	StrictUpperBound bool
	DefaultPageSize  int
	MaxPageSize      int
}

// Engine runs the pipeline with a fixed configuration. It holds no state
// between calls and is safe for concurrent use.
type Engine struct {
	cfg EngineConfig
}

// NewEngine creates an Engine.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.DefaultPageSize < 1 {
		cfg.DefaultPageSize = DefaultPageSize
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize || cfg.MaxPageSize > MaxPageSize {
		cfg.MaxPageSize = MaxPageSize
	}
	return &Engine{cfg: cfg}
}

// Config returns the engine configuration after defaults were applied.
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// Interval resolves the query window.
func (e *Engine) Interval(q Query, now time.Time) domain.Interval {
	return Resolve(q.TimeRange, now)
}

func (e *Engine) criteria(q Query) Criteria {
	c := q.Criteria
	c.Bounded = c.Bounded || e.cfg.StrictUpperBound
	return c
}

// Summary builds the summary cards for q.
func (e *Engine) Summary(records []domain.Record, q Query, now time.Time) domain.SummaryStats {
	return Summarize(records, e.Interval(q, now), e.criteria(q))
}

// History builds one table page for q.
func (e *Engine) History(records []domain.Record, q Query, now time.Time) domain.Page[domain.Record] {
	filtered := Filter(records, e.Interval(q, now), e.criteria(q))
	return Paginate(filtered, q.Page, e.pageSize(q.PageSize))
}

// Filtered returns the full filtered set for q, newest first.
func (e *Engine) Filtered(records []domain.Record, q Query, now time.Time) []domain.Record {
	return SortByDateDesc(Filter(records, e.Interval(q, now), e.criteria(q)))
}

// Chart builds the chart series for q and reports the granularity used. The
// requested granularity is coarsened when the span would need more than
// MaxBuckets buckets.
func (e *Engine) Chart(records []domain.Record, q Query, now time.Time) ([]domain.ChartBucket, Granularity) {
	iv := e.Interval(q, now)
	c := e.criteria(q)
	filtered := Filter(records, iv, c)
	g := q.Granularity
	if g == "" {
		g = GranularityFor(q.TimeRange)
	}

	span := iv
	switch {
	case q.TimeRange == AllTime:
		// Bucketing from the epoch would produce decades of empty months.
		span = domain.Interval{}
		if len(filtered) > 0 {
			span = recordSpan(filtered)
		}
	case !c.Bounded:
		// Without an upper bound the summary counts records dated after now,
		// so the chart has to reach them too.
		if latest, ok := latestDate(filtered); ok && !latest.Before(span.End) {
			span.End = latest.In(span.End.Location()).Add(time.Nanosecond)
		}
	}

	g = FitGranularity(g, span)
	return Group(filtered, g, span), g
}

func latestDate(records []domain.Record) (time.Time, bool) {
	if len(records) == 0 {
		return time.Time{}, false
	}
	latest := records[0].Date
	for _, r := range records[1:] {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	return latest, true
}

// Build computes summary, page and chart concurrently from the same records.
func (e *Engine) Build(ctx context.Context, records []domain.Record, q Query, now time.Time) (*Report, error) {
	report := &Report{
		TimeRange: q.TimeRange,
		Interval:  e.Interval(q, now),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		report.Summary = e.Summary(records, q, now)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		report.History = e.History(records, q, now)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		report.Chart, report.Granularity = e.Chart(records, q, now)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return report, nil
}

func (e *Engine) pageSize(n int) int {
	switch {
	case n < 1:
		return e.cfg.DefaultPageSize
	case n > e.cfg.MaxPageSize:
		return e.cfg.MaxPageSize
	}
	return n
}
