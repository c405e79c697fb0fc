// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"networkpay/internal/domain"
	"networkpay/pkg/logger"
)

// OwnerIndex lists owners that used the dashboard recently.
type OwnerIndex interface {
	ActiveOwners(ctx context.Context, since time.Time, limit int) ([]uuid.UUID, error)
	PruneOwners(ctx context.Context, before time.Time) (int64, error)
}

// Refresher re-fetches one owner's ledger and stores the snapshot.
type Refresher interface {
	Refresh(ctx context.Context, owner uuid.UUID, ledger domain.Ledger) error
}

// Recorder receives warmer outcomes.
type Recorder interface {
	RecordRefresh(err error)
	SetActiveOwners(n int)
}

type WarmerConfig struct {
	Schedule     string
	ActiveWindow time.Duration
	MaxOwners    int
	Concurrency  int
	RunTimeout   time.Duration
}

// Warmer keeps record snapshots fresh for active owners so that fallbacks
// serve recent data when the upstream is down.
type Warmer struct {
	owners    OwnerIndex
	refresher Refresher
	recorder  Recorder
	cfg       WarmerConfig
	logger    logger.Logger
	cron      *cron.Cron
	running   atomic.Bool
	now       func() time.Time
}

func NewWarmer(owners OwnerIndex, refresher Refresher, cfg WarmerConfig, log logger.Logger, recorder Recorder) *Warmer {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 5m"
	}
	if cfg.ActiveWindow <= 0 {
		cfg.ActiveWindow = time.Hour
	}
	if cfg.MaxOwners <= 0 {
		cfg.MaxOwners = 200
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 2 * time.Minute
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Warmer{
		owners:    owners,
		refresher: refresher,
		recorder:  recorder,
		cfg:       cfg,
		logger:    log.With(map[string]interface{}{"job": "snapshot_warmer"}),
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		now:       time.Now,
	}
}

// Start registers the job and starts the cron runner. It returns an error for
// an invalid schedule.
func (w *Warmer) Start() error {
	if _, err := w.cron.AddFunc(w.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), w.cfg.RunTimeout)
		defer cancel()
		if _, err := w.RunOnce(ctx); err != nil {
			w.logger.Error("Warmer run failed", map[string]interface{}{"error": err.Error()})
		}
	}); err != nil {
		return err
	}

	w.cron.Start()
	w.logger.Info("Snapshot warmer started", map[string]interface{}{"schedule": w.cfg.Schedule})
	return nil
}

// Stop halts the runner and waits for a job in progress.
func (w *Warmer) Stop(ctx context.Context) {
	select {
	case <-w.cron.Stop().Done():
	case <-ctx.Done():
	}
	w.logger.Info("Snapshot warmer stopped", nil)
}

// RunOnce refreshes every ledger of every active owner and returns the number
// of successful refreshes. A failed refresh is logged and does not stop the run.
func (w *Warmer) RunOnce(ctx context.Context) (int, error) {
	if !w.running.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer w.running.Store(false)

	since := w.now().Add(-w.cfg.ActiveWindow)
	owners, err := w.owners.ActiveOwners(ctx, since, w.cfg.MaxOwners)
	if err != nil {
		return 0, err
	}
	if w.recorder != nil {
		w.recorder.SetActiveOwners(len(owners))
	}

	var refreshed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for _, owner := range owners {
		for _, ledger := range domain.Ledgers {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				err := w.refresher.Refresh(gctx, owner, ledger)
				if w.recorder != nil {
					w.recorder.RecordRefresh(err)
				}
				if err != nil {
					w.logger.Warn("Snapshot refresh failed", map[string]interface{}{
						"owner_id": owner,
						"ledger":   ledger,
						"error":    err.Error(),
					})
					return nil
				}
				refreshed.Add(1)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return int(refreshed.Load()), err
	}

	if pruned, err := w.owners.PruneOwners(ctx, since); err != nil {
		w.logger.Warn("Failed to prune inactive owners", map[string]interface{}{"error": err.Error()})
	} else if pruned > 0 {
		w.logger.Debug("Pruned inactive owners", map[string]interface{}{"count": pruned})
	}

	w.logger.Info("Warmer run complete", map[string]interface{}{
		"owners":    len(owners),
		"refreshed": refreshed.Load(),
	})
	return int(refreshed.Load()), nil
}
