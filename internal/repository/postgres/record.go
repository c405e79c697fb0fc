package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"networkpay/internal/domain"
	"networkpay/pkg/errors"
)

const recordColumns = `id, owner_id, ledger, occurred_at, amount, currency, status, category, source`

type RecordRepository struct {
	db *sqlx.DB
}

func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) Insert(ctx context.Context, record *domain.Record) error {
	query := `
		INSERT INTO earnings_schema.records (` + recordColumns + `)
		VALUES (:id, :owner_id, :ledger, :occurred_at, :amount, :currency, :status, :category, :source)
	`
	_, err := r.db.NamedExecContext(ctx, query, record)
	return errors.Wrap(err, "failed to insert record")
}

// BulkInsert writes records in one transaction. Existing IDs are left as they
// are, so seeding twice is harmless.
func (r *RecordRepository) BulkInsert(ctx context.Context, records []domain.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO earnings_schema.records (`+recordColumns+`)
		VALUES (:id, :owner_id, :ledger, :occurred_at, :amount, :currency, :status, :category, :source)
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return 0, errors.Wrap(err, "failed to prepare insert")
	}
	defer stmt.Close()

	var inserted int64
	for i := range records {
		res, err := stmt.ExecContext(ctx, &records[i])
		if err != nil {
			return 0, errors.Wrap(err, "failed to insert record")
		}
		n, _ := res.RowsAffected()
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit records")
	}
	return inserted, nil
}

func (r *RecordRepository) FindByOwner(ctx context.Context, owner uuid.UUID, ledger domain.Ledger) ([]domain.Record, error) {
	records := []domain.Record{}
	query := `
		SELECT ` + recordColumns + `
		FROM earnings_schema.records
		WHERE owner_id = $1 AND ledger = $2
		ORDER BY occurred_at DESC
	`
	if err := r.db.SelectContext(ctx, &records, query, owner, ledger); err != nil {
		return nil, errors.Wrap(err, "failed to find records by owner")
	}
	return records, nil
}

func (r *RecordRepository) CountByOwner(ctx context.Context, owner uuid.UUID, ledger domain.Ledger) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM earnings_schema.records WHERE owner_id = $1 AND ledger = $2`
	if err := r.db.GetContext(ctx, &count, query, owner, ledger); err != nil {
		return 0, errors.Wrap(err, "failed to count records")
	}
	return count, nil
}

// DeleteByOwner removes every record of owner in ledger.
func (r *RecordRepository) DeleteByOwner(ctx context.Context, owner uuid.UUID, ledger domain.Ledger) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM earnings_schema.records WHERE owner_id = $1 AND ledger = $2`, owner, ledger)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete records")
	}
	return res.RowsAffected()
}
