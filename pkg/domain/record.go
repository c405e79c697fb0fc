package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger identifies which earnings book a record belongs to.
type Ledger string

const (
	LedgerCommission Ledger = "commission"
	LedgerPurchase   Ledger = "purchase"
	LedgerPayout     Ledger = "payout"
)

// Ledgers lists every supported ledger in display order.
var Ledgers = []Ledger{LedgerCommission, LedgerPurchase, LedgerPayout}

// ParseLedger accepts both the singular ("commission") and the plural route
// form ("commissions").
func ParseLedger(s string) (Ledger, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "s")
	for _, l := range Ledgers {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}

// Plural returns the route segment used for this ledger.
func (l Ledger) Plural() string {
	return string(l) + "s"
}

// Record statuses shared across ledgers.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusApproved   = "approved"
	StatusPaid       = "paid"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusRefunded   = "refunded"
)

// Commission categories.
const (
	CategoryDirect     = "c1"
	CategoryTeam       = "c2"
	CategoryLeadership = "c3"
)

// Purchase categories.
const (
	PurchasePersonal = "personal"
	PurchaseDirect   = "direct"
	PurchaseTeam     = "team"
)

// IsSettled reports whether status belongs to the terminal-success set.
func IsSettled(status string) bool {
	switch strings.ToLower(status) {
	case StatusPaid, StatusCompleted, StatusApproved:
		return true
	}
	return false
}

// Record is a single commission, purchase or payout entry. Records are
// produced by a data provider and are never modified afterwards.
type Record struct {
	ID       string          `json:"id" db:"id"`
	OwnerID  uuid.UUID       `json:"owner_id" db:"owner_id"`
	Ledger   Ledger          `json:"ledger" db:"ledger"`
	Date     time.Time       `json:"date" db:"occurred_at"`
	Amount   decimal.Decimal `json:"amount" db:"amount"`
	Currency string          `json:"currency" db:"currency"`
	Status   string          `json:"status" db:"status"`
	Category string          `json:"category" db:"category"`
	Source   string          `json:"source" db:"source"`
}

// Interval is a resolved time window. End is exclusive.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// IsZero reports whether neither bound is set.
func (i Interval) IsZero() bool {
	return i.Start.IsZero() && i.End.IsZero()
}

// SummaryStats is the derived summary of a filtered record set.
type SummaryStats struct {
	Total         decimal.Decimal            `json:"total"`
	Count         int                        `json:"count"`
	ByCategory    map[string]decimal.Decimal `json:"by_category"`
	ByStatus      map[string]decimal.Decimal `json:"by_status"`
	PendingAmount decimal.Decimal            `json:"pending_amount"`
	PaidAmount    decimal.Decimal            `json:"paid_amount"`
	PreviousTotal decimal.Decimal            `json:"previous_total"`
	GrowthPercent float64                    `json:"growth_percent"`
	Interval      Interval                   `json:"interval"`
}

// Page is one slice of a date-descending result set.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// ChartBucket holds per-category sums for one calendar unit.
type ChartBucket struct {
	Label string                     `json:"label"`
	Start time.Time                  `json:"start"`
	Sums  map[string]decimal.Decimal `json:"sums"`
	Total decimal.Decimal            `json:"total"`
}
