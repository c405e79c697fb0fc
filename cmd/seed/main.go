// Seed fills the records table with generated history for one owner so the
// postgres record source has something to serve.
//
// Usage:
//
//	seed -owner 7d9f... [-ledger commissions] [-reset]
//
// Reads DATABASE_URL via networkpay/pkg/config.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"networkpay/internal/domain"
	"networkpay/internal/repository/postgres"
	"networkpay/internal/source"
	"networkpay/pkg/config"
	"networkpay/pkg/logger"
)

func main() {
	log := logger.New("seed-records")

	ownerFlag := flag.String("owner", "", "owner UUID to seed (random when empty)")
	ledgerFlag := flag.String("ledger", "", "single ledger to seed (all when empty)")
	reset := flag.Bool("reset", false, "delete the owner's existing records first")
	flag.Parse()

	cfg := config.Load()
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL environment variable is required", nil)
	}

	owner := uuid.New()
	if *ownerFlag != "" {
		id, err := uuid.Parse(*ownerFlag)
		if err != nil {
			log.Fatal("Invalid owner", map[string]interface{}{"owner": *ownerFlag, "error": err.Error()})
		}
		owner = id
	}

	ledgers := domain.Ledgers
	if *ledgerFlag != "" {
		l, ok := domain.ParseLedger(*ledgerFlag)
		if !ok {
			log.Fatal("Unknown ledger", map[string]interface{}{"ledger": *ledgerFlag})
		}
		ledgers = []domain.Ledger{l}
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	repo := postgres.NewRecordRepository(db)
	generator := source.NewMockProvider()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for _, ledger := range ledgers {
		if *reset {
			removed, err := repo.DeleteByOwner(ctx, owner, ledger)
			if err != nil {
				log.Fatal("Failed to delete records", map[string]interface{}{"ledger": string(ledger), "error": err.Error()})
			}
			log.Info("Deleted existing records", map[string]interface{}{"ledger": string(ledger), "count": removed})
		}

		records, err := generator.Records(ctx, owner, ledger)
		if err != nil {
			log.Fatal("Failed to generate records", map[string]interface{}{"ledger": string(ledger), "error": err.Error()})
		}

		inserted, err := repo.BulkInsert(ctx, records)
		if err != nil {
			log.Fatal("Failed to insert records", map[string]interface{}{"ledger": string(ledger), "error": err.Error()})
		}

		log.Info("Seeded ledger", map[string]interface{}{
			"owner":     owner.String(),
			"ledger":    string(ledger),
			"generated": len(records),
			"inserted":  inserted,
		})
	}
}
