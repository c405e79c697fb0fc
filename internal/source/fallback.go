package source

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"networkpay/internal/domain"
	"networkpay/pkg/errors"
	"networkpay/pkg/logger"
)

// FallbackConfig configures a FallbackProvider.
type FallbackConfig struct {
	Timeout     time.Duration
	SnapshotTTL time.Duration
}

// FallbackProvider tries the primary provider under a timeout. On success the
// result is stored as a snapshot; on failure the last snapshot is served, then
// the mock provider when one is set.
type FallbackProvider struct {
	primary  Provider
	cache    SnapshotCache
	mock     Provider
	cfg      FallbackConfig
	logger   logger.Logger
	recorder Recorder
}

// NewFallbackProvider builds the chain. cache, mock and recorder may be nil.
func NewFallbackProvider(primary Provider, cache SnapshotCache, mock Provider, cfg FallbackConfig, log logger.Logger, recorder Recorder) *FallbackProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = 24 * time.Hour
	}
	if log == nil {
		log = logger.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &FallbackProvider{
		primary:  primary,
		cache:    cache,
		mock:     mock,
		cfg:      cfg,
		logger:   log,
		recorder: recorder,
	}
}

func (p *FallbackProvider) Name() string {
	return "fallback(" + p.primary.Name() + ")"
}

func (p *FallbackProvider) Records(ctx context.Context, owner uuid.UUID, ledger domain.Ledger) ([]domain.Record, error) {
	records, err := p.fetchPrimary(ctx, owner, ledger)
	if err == nil {
		if p.cache != nil {
			if cerr := p.cache.SaveSnapshot(ctx, owner, ledger, records, p.cfg.SnapshotTTL); cerr != nil {
				p.logger.Warn("Failed to store snapshot", map[string]interface{}{
					"owner_id": owner,
					"ledger":   ledger,
					"error":    cerr.Error(),
				})
			}
		}
		return records, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	reason := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	p.logger.Warn("Provider failed", map[string]interface{}{
		"provider": p.primary.Name(),
		"owner_id": owner,
		"ledger":   ledger,
		"reason":   reason,
		"error":    err.Error(),
	})

	if p.cache != nil {
		snap, cerr := p.cache.LoadSnapshot(ctx, owner, ledger)
		switch {
		case cerr == nil:
			p.recorder.RecordFallback("snapshot", reason)
			p.logger.Info("Serving snapshot", map[string]interface{}{
				"owner_id":   owner,
				"ledger":     ledger,
				"fetched_at": snap.FetchedAt,
			})
			return snap.Records, nil
		case !errors.Is(cerr, errors.ErrCacheMiss):
			p.logger.Warn("Failed to load snapshot", map[string]interface{}{
				"owner_id": owner,
				"ledger":   ledger,
				"error":    cerr.Error(),
			})
		}
	}

	if p.mock != nil {
		mocked, merr := p.mock.Records(ctx, owner, ledger)
		if merr == nil {
			p.recorder.RecordFallback(p.mock.Name(), reason)
			return mocked, nil
		}
		p.logger.Error("Mock provider failed", map[string]interface{}{"error": merr.Error()})
	}

	return nil, fmt.Errorf("%w: %s: %v", errors.ErrSourceUnavailable, p.primary.Name(), err)
}

// Refresh fetches from the primary provider and stores the snapshot without
// falling back. The cache warmer uses it.
func (p *FallbackProvider) Refresh(ctx context.Context, owner uuid.UUID, ledger domain.Ledger) error {
	records, err := p.fetchPrimary(ctx, owner, ledger)
	if err != nil {
		return err
	}
	if p.cache == nil {
		return nil
	}
	return p.cache.SaveSnapshot(ctx, owner, ledger, records, p.cfg.SnapshotTTL)
}

func (p *FallbackProvider) fetchPrimary(ctx context.Context, owner uuid.UUID, ledger domain.Ledger) ([]domain.Record, error) {
	fctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	records, err := p.primary.Records(fctx, owner, ledger)
	p.recorder.ObserveFetch(p.primary.Name(), time.Since(start), err)
	return records, err
}
