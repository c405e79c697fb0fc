package source

import (
	"context"

	"github.com/google/uuid"

	"networkpay/internal/domain"
)

// RecordStore is the part of the record repository a provider needs.
type RecordStore interface {
	FindByOwner(ctx context.Context, owner uuid.UUID, ledger domain.Ledger) ([]domain.Record, error)
}

// PostgresProvider serves records from the local record table.
type PostgresProvider struct {
	store RecordStore
}

func NewPostgresProvider(store RecordStore) *PostgresProvider {
	return &PostgresProvider{store: store}
}

func (p *PostgresProvider) Name() string {
	return "postgres"
}

func (p *PostgresProvider) Records(ctx context.Context, owner uuid.UUID, ledger domain.Ledger) ([]domain.Record, error) {
	return p.store.FindByOwner(ctx, owner, ledger)
}
