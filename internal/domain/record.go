package domain

import pkg "networkpay/pkg/domain"

// Record is a commission, purchase or payout entry.
type Record = pkg.Record

// Ledger identifies the earnings book of a record.
type Ledger = pkg.Ledger

// Interval is a resolved time window.
type Interval = pkg.Interval

// SummaryStats is the derived summary of a record set.
type SummaryStats = pkg.SummaryStats

// Page is one slice of a date-descending result set.
type Page[T any] = pkg.Page[T]

// ChartBucket holds per-category sums for one calendar unit.
type ChartBucket = pkg.ChartBucket

// Re-exported ledgers.
const (
	LedgerCommission = pkg.LedgerCommission
	LedgerPurchase   = pkg.LedgerPurchase
	LedgerPayout     = pkg.LedgerPayout
)

// Ledgers lists every supported ledger.
var Ledgers = pkg.Ledgers

// ParseLedger accepts singular or plural ledger names.
func ParseLedger(s string) (Ledger, bool) { return pkg.ParseLedger(s) }

// IsSettled reports whether status is in the terminal-success set.
func IsSettled(status string) bool { return pkg.IsSettled(status) }

// Re-exported statuses.
const (
	StatusPending    = pkg.StatusPending
	StatusProcessing = pkg.StatusProcessing
	StatusApproved   = pkg.StatusApproved
	StatusPaid       = pkg.StatusPaid
	StatusCompleted  = pkg.StatusCompleted
	StatusFailed     = pkg.StatusFailed
	StatusRefunded   = pkg.StatusRefunded
)

// Re-exported categories.
const (
	CategoryDirect     = pkg.CategoryDirect
	CategoryTeam       = pkg.CategoryTeam
	CategoryLeadership = pkg.CategoryLeadership

	PurchasePersonal = pkg.PurchasePersonal
	PurchaseDirect   = pkg.PurchaseDirect
	PurchaseTeam     = pkg.PurchaseTeam
)
