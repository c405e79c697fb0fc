// Package source supplies record sets to the earnings pipeline. Providers are
// injected; nothing here keeps package-level record state.
package source

import (
	"context"
	"time"

	"github.com/google/uuid"

	"networkpay/internal/domain"
	"networkpay/pkg/cache"
)

// Provider fetches every record an owner has in one ledger.
type Provider interface {
	Name() string
	Records(ctx context.Context, owner uuid.UUID, ledger domain.Ledger) ([]domain.Record, error)
}

// SnapshotCache keeps the last good record set per owner and ledger.
type SnapshotCache interface {
	SaveSnapshot(ctx context.Context, owner uuid.UUID, ledger domain.Ledger, records []domain.Record, ttl time.Duration) error
	LoadSnapshot(ctx context.Context, owner uuid.UUID, ledger domain.Ledger) (*cache.Snapshot, error)
}

// Recorder receives fetch outcomes, usually for Prometheus.
type Recorder interface {
	ObserveFetch(provider string, elapsed time.Duration, err error)
	RecordFallback(provider, reason string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(string, time.Duration, error) {}
func (nopRecorder) RecordFallback(string, string)             {}
