package source

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"networkpay/internal/domain"
)

// mockNamespace scopes generated record IDs.
var mockNamespace = uuid.MustParse("6f1c7a2e-3b7d-5c1e-9a44-1f0b8e2d7c10")

type ledgerProfile struct {
	categories []string
	statuses   []string
	minCents   int64
	maxCents   int64
}

var mockProfiles = map[domain.Ledger]ledgerProfile{
	domain.LedgerCommission: {
		categories: []string{domain.CategoryDirect, domain.CategoryTeam, domain.CategoryLeadership},
		statuses:   []string{domain.StatusPending, domain.StatusApproved, domain.StatusPaid, domain.StatusPaid},
		minCents:   500,
		maxCents:   50000,
	},
	domain.LedgerPurchase: {
		categories: []string{domain.PurchasePersonal, domain.PurchaseDirect, domain.PurchaseTeam},
		statuses:   []string{domain.StatusPending, domain.StatusCompleted, domain.StatusCompleted, domain.StatusRefunded},
		minCents:   2000,
		maxCents:   150000,
	},
	domain.LedgerPayout: {
		statuses: []string{domain.StatusPending, domain.StatusProcessing, domain.StatusCompleted, domain.StatusCompleted, domain.StatusFailed},
		minCents: 5000,
		maxCents: 200000,
	},
}

var payoutDestinations = []string{"bank_transfer", "wallet", "card"}

// MockProvider generates a stable record set per owner and ledger. The same
// owner, ledger and day always yield the same records.
type MockProvider struct {
	count   int
	span    time.Duration
	members int
	now     func() time.Time
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		count:   60,
		span:    180 * 24 * time.Hour,
		members: 12,
		now:     time.Now,
	}
}

func (p *MockProvider) Name() string {
	return "mock"
}

func (p *MockProvider) Records(ctx context.Context, owner uuid.UUID, ledger domain.Ledger) ([]domain.Record, error) {
	profile, ok := mockProfiles[ledger]
	if !ok {
		return nil, fmt.Errorf("mock: unknown ledger %q", ledger)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seedFor(owner, ledger)))
	today := p.now().UTC().Truncate(24 * time.Hour)

	records := make([]domain.Record, 0, p.count)
	for i := 0; i < p.count; i++ {
		offset := time.Duration(rng.Int63n(int64(p.span)))
		status := profile.statuses[rng.Intn(len(profile.statuses))]

		category := status
		if len(profile.categories) > 0 {
			category = profile.categories[rng.Intn(len(profile.categories))]
		}

		amount := decimal.New(profile.minCents+rng.Int63n(profile.maxCents-profile.minCents), -2)

		records = append(records, domain.Record{
			ID:       uuid.NewSHA1(mockNamespace, []byte(fmt.Sprintf("%s/%s/%d", owner, ledger, i))).String(),
			OwnerID:  owner,
			Ledger:   ledger,
			Date:     today.Add(-offset),
			Amount:   amount,
			Currency: "USD",
			Status:   status,
			Category: category,
			Source:   p.sourceFor(rng, ledger, category),
		})
	}
	return records, nil
}

func (p *MockProvider) sourceFor(rng *rand.Rand, ledger domain.Ledger, category string) string {
	switch {
	case ledger == domain.LedgerPayout:
		return payoutDestinations[rng.Intn(len(payoutDestinations))]
	case ledger == domain.LedgerPurchase && category == domain.PurchasePersonal:
		return "self"
	case ledger == domain.LedgerPurchase:
		return fmt.Sprintf("member-%02d", rng.Intn(p.members)+1)
	default:
		return fmt.Sprintf("order-%05d", rng.Intn(100000))
	}
}

func seedFor(owner uuid.UUID, ledger domain.Ledger) int64 {
	h := fnv.New64a()
	_, _ = h.Write(owner[:])
	_, _ = h.Write([]byte(ledger))
	return int64(h.Sum64())
}
