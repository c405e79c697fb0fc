package analytics

import (
	"sort"

	"networkpay/internal/domain"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// SortByDateDesc returns a copy of records ordered newest first. Records with
// equal dates keep their input order.
func SortByDateDesc(records []domain.Record) []domain.Record {
	sorted := make([]domain.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})
	return sorted
}

// TotalPages is ceil(total/pageSize), never less than 1.
func TotalPages(total, pageSize int) int {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// Paginate sorts records newest first and returns the requested page. A
// page size below 1 becomes DefaultPageSize and the page is clamped to
// [1, TotalPages]. MaxPageSize is enforced by Engine, not here.
func Paginate(records []domain.Record, page, pageSize int) domain.Page[domain.Record] {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	total := len(records)
	totalPages := TotalPages(total, pageSize)
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	sorted := SortByDateDesc(records)
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return domain.Page[domain.Record]{
		Items:      sorted[start:end],
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}
