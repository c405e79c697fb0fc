// Package earnings serves the commission, purchase and payout views. It
// fetches records through a source.Provider and runs them through the
// analytics pipeline.
package earnings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"networkpay/internal/analytics"
	"networkpay/internal/domain"
	"networkpay/internal/export"
	"networkpay/internal/rank"
	"networkpay/internal/source"
	"networkpay/pkg/errors"
	"networkpay/pkg/logger"
	"networkpay/pkg/validator"
)

// Query is the validated form of the dashboard query string.
type Query struct {
	TimeRange   string `json:"time_range" validate:"timerange"`
	Status      string `json:"status" validate:"max=32"`
	Type        string `json:"type" validate:"max=32"`
	Currency    string `json:"currency" validate:"max=8"`
	Page        int    `json:"page" validate:"min=1"`
	PageSize    int    `json:"page_size" validate:"min=1,max=100"`
	Granularity string `json:"granularity" validate:"omitempty,oneof=day week month"`
}

// ActivityTracker remembers which owners recently used the dashboard.
type ActivityTracker interface {
	TouchOwner(ctx context.Context, owner uuid.UUID, at time.Time) error
}

// Observer receives per-query measurements.
type Observer interface {
	ObserveQuery(ledger, view string, elapsed time.Duration)
	RecordExport(format string)
}

// ChartResponse is the chart view of a ledger.
type ChartResponse struct {
	TimeRange   analytics.TimeRange   `json:"time_range"`
	Granularity analytics.Granularity `json:"granularity"`
	Interval    domain.Interval       `json:"interval"`
	Buckets     []domain.ChartBucket  `json:"buckets"`
}

// ExportFile is a rendered history download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Service struct {
	provider  source.Provider
	engine    *analytics.Engine
	ladder    rank.Ladder
	tracker   ActivityTracker
	observer  Observer
	validator *validator.Validator
	logger    logger.Logger
	now       func() time.Time
}

// NewService wires the service. tracker and observer may be nil.
func NewService(provider source.Provider, engine *analytics.Engine, tracker ActivityTracker, observer Observer, log logger.Logger) *Service {
	v := validator.New()
	tokens := make([]string, len(analytics.TimeRanges))
	for i, t := range analytics.TimeRanges {
		tokens[i] = string(t)
	}
	if err := v.RegisterEnum("timerange", tokens...); err != nil {
		panic(err)
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Service{
		provider:  provider,
		engine:    engine,
		ladder:    rank.DefaultLadder,
		tracker:   tracker,
		observer:  observer,
		validator: v,
		logger:    log,
		now:       time.Now,
	}
}

// WithLadder replaces the rank ladder.
func (s *Service) WithLadder(l rank.Ladder) *Service {
	s.ladder = l
	return s
}

// DefaultQuery returns the query used when the client sends no parameters.
func (s *Service) DefaultQuery() Query {
	return Query{
		TimeRange: string(analytics.AllTime),
		Page:      1,
		PageSize:  s.engine.Config().DefaultPageSize,
	}
}

func (s *Service) History(ctx context.Context, owner uuid.UUID, ledger domain.Ledger, q Query) (*domain.Page[domain.Record], error) {
	defer s.observe(ledger, "history", time.Now())
	aq, records, err := s.load(ctx, owner, ledger, q)
	if err != nil {
		return nil, err
	}
	page := s.engine.History(records, aq, s.now())
	return &page, nil
}

func (s *Service) Stats(ctx context.Context, owner uuid.UUID, ledger domain.Ledger, q Query) (*domain.SummaryStats, error) {
	defer s.observe(ledger, "stats", time.Now())
	aq, records, err := s.load(ctx, owner, ledger, q)
	if err != nil {
		return nil, err
	}
	stats := s.engine.Summary(records, aq, s.now())
	return &stats, nil
}

func (s *Service) Chart(ctx context.Context, owner uuid.UUID, ledger domain.Ledger, q Query) (*ChartResponse, error) {
	defer s.observe(ledger, "chart", time.Now())
	aq, records, err := s.load(ctx, owner, ledger, q)
	if err != nil {
		return nil, err
	}
	now := s.now()
	buckets, g := s.engine.Chart(records, aq, now)
	return &ChartResponse{
		TimeRange:   aq.TimeRange,
		Granularity: g,
		Interval:    s.engine.Interval(aq, now),
		Buckets:     buckets,
	}, nil
}

// Overview returns summary, page and chart computed from a single fetch.
func (s *Service) Overview(ctx context.Context, owner uuid.UUID, ledger domain.Ledger, q Query) (*analytics.Report, error) {
	defer s.observe(ledger, "overview", time.Now())
	aq, records, err := s.load(ctx, owner, ledger, q)
	if err != nil {
		return nil, err
	}
	return s.engine.Build(ctx, records, aq, s.now())
}

// RankProgress evaluates the owner's all-time completed purchases against the
// rank ladder.
func (s *Service) RankProgress(ctx context.Context, owner uuid.UUID) (*rank.Progress, error) {
	defer s.observe(domain.LedgerPurchase, "rank", time.Now())

	records, err := s.fetch(ctx, owner, domain.LedgerPurchase)
	if err != nil {
		return nil, err
	}
	progress := rank.Evaluate(rank.InputFromPurchases(records), s.ladder)
	return &progress, nil
}

// Export renders the full filtered set, newest first, without pagination.
func (s *Service) Export(ctx context.Context, owner uuid.UUID, ledger domain.Ledger, q Query, format string) (*ExportFile, error) {
	defer s.observe(ledger, "export", time.Now())

	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	aq, records, err := s.load(ctx, owner, ledger, q)
	if err != nil {
		return nil, err
	}

	now := s.now()
	meta := export.Meta{
		Owner:       owner.String(),
		Ledger:      ledger,
		TimeRange:   string(aq.TimeRange),
		Interval:    s.engine.Interval(aq, now),
		GeneratedAt: now,
	}
	data, err := export.Build(f, meta, s.engine.Summary(records, aq, now), s.engine.Filtered(records, aq, now))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build export")
	}
	if s.observer != nil {
		s.observer.RecordExport(string(f))
	}

	return &ExportFile{
		Filename:    meta.Filename(f),
		ContentType: f.ContentType(),
		Data:        data,
	}, nil
}

func (s *Service) load(ctx context.Context, owner uuid.UUID, ledger domain.Ledger, q Query) (analytics.Query, []domain.Record, error) {
	aq, err := s.toAnalytics(ledger, q)
	if err != nil {
		return analytics.Query{}, nil, err
	}
	records, err := s.fetch(ctx, owner, ledger)
	if err != nil {
		return analytics.Query{}, nil, err
	}
	return aq, records, nil
}

func (s *Service) fetch(ctx context.Context, owner uuid.UUID, ledger domain.Ledger) ([]domain.Record, error) {
	if s.tracker != nil {
		if err := s.tracker.TouchOwner(ctx, owner, s.now()); err != nil {
			s.logger.Warn("Failed to record owner activity", map[string]interface{}{
				"owner_id": owner,
				"error":    err.Error(),
			})
		}
	}

	records, err := s.provider.Records(ctx, owner, ledger)
	if err != nil {
		s.logger.Error("Failed to fetch records", map[string]interface{}{
			"owner_id": owner,
			"ledger":   ledger,
			"provider": s.provider.Name(),
			"error":    err.Error(),
		})
		return nil, err
	}
	return records, nil
}

func (s *Service) toAnalytics(ledger domain.Ledger, q Query) (analytics.Query, error) {
	if _, ok := domain.ParseLedger(string(ledger)); !ok {
		return analytics.Query{}, errors.ErrInvalidLedger
	}
	if err := s.validator.Validate(q); err != nil {
		switch fields := s.validator.ValidateStructured(q); {
		case fields["TimeRange"] != "":
			return analytics.Query{}, fmt.Errorf("%w: %q", errors.ErrInvalidTimeRange, q.TimeRange)
		case fields["Page"] != "" || fields["PageSize"] != "":
			return analytics.Query{}, fmt.Errorf("%w: %v", errors.ErrInvalidPage, err)
		}
		return analytics.Query{}, fmt.Errorf("%w: %v", errors.ErrInvalidQuery, err)
	}

	tr, _ := analytics.ParseTimeRange(q.TimeRange)
	g, _ := analytics.ParseGranularity(q.Granularity)
	return analytics.Query{
		TimeRange: tr,
		Criteria: analytics.Criteria{
			Type:     strings.TrimSpace(q.Type),
			Status:   strings.TrimSpace(q.Status),
			Currency: strings.TrimSpace(q.Currency),
		},
		Page:        q.Page,
		PageSize:    q.PageSize,
		Granularity: g,
	}, nil
}

func (s *Service) observe(ledger domain.Ledger, view string, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveQuery(string(ledger), view, time.Since(start))
	}
}
