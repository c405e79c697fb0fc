// Package export renders filtered record sets as downloadable files.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"networkpay/internal/domain"
	"networkpay/pkg/errors"
)

// Format is a supported export file type.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
	FormatCSV  Format = "csv"
)

// ParseFormat defaults to xlsx when s is empty.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatXLSX, nil
	case FormatXLSX, FormatPDF, FormatCSV:
		return f, nil
	}
	return "", errors.ErrUnsupportedFormat
}

func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatCSV:
		return "text/csv"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

// Meta describes the query an export was built from.
type Meta struct {
	Owner       string
	Ledger      domain.Ledger
	TimeRange   string
	Interval    domain.Interval
	GeneratedAt time.Time
}

// Filename is the attachment name offered to the browser.
func (m Meta) Filename(f Format) string {
	return fmt.Sprintf("%s-%s-%s.%s", m.Ledger.Plural(), m.TimeRange, m.GeneratedAt.Format("20060102"), f)
}

var recordHeader = []string{"Date", "ID", "Category", "Status", "Amount", "Currency", "Source"}

// amountColumn is the 1-based column of "Amount" in recordHeader.
const amountColumn = 5

// Build renders records in format f.
func Build(f Format, meta Meta, summary domain.SummaryStats, records []domain.Record) ([]byte, error) {
	switch f {
	case FormatXLSX:
		return BuildXLSX(meta, summary, records)
	case FormatPDF:
		return BuildPDF(meta, summary, records)
	case FormatCSV:
		return BuildCSV(records)
	}
	return nil, errors.ErrUnsupportedFormat
}

func title(meta Meta) string {
	name := string(meta.Ledger)
	if name == "" {
		return "History"
	}
	return strings.ToUpper(name[:1]) + name[1:] + " history"
}

// BuildXLSX writes a summary sheet and a records sheet.
func BuildXLSX(meta Meta, summary domain.SummaryStats, records []domain.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	recordsSheet := "records"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(recordsSheet); err != nil {
		return nil, err
	}

	rows := [][]interface{}{
		{title(meta)},
		{},
		{"Owner", meta.Owner},
		{"Time range", meta.TimeRange},
		{"From", meta.Interval.Start.Format(time.RFC3339)},
		{"To", meta.Interval.End.Format(time.RFC3339)},
		{"Generated", meta.GeneratedAt.Format(time.RFC3339)},
		{"Records", summary.Count},
		{"Total", summary.Total.StringFixed(2)},
		{"Pending", summary.PendingAmount.StringFixed(2)},
		{"Paid", summary.PaidAmount.StringFixed(2)},
		{"Previous period", summary.PreviousTotal.StringFixed(2)},
		{"Growth %", summary.GrowthPercent},
	}
	for _, category := range sortedKeys(summary.ByCategory) {
		rows = append(rows, []interface{}{"Category " + category, summary.ByCategory[category].StringFixed(2)})
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, err
		}
	}

	header := make([]interface{}, len(recordHeader))
	for i, h := range recordHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(recordsSheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, r := range records {
		row := []interface{}{r.Date.Format("2006-01-02 15:04"), r.ID, r.Category, r.Status, nil, r.Currency, r.Source}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(recordsSheet, cell, &row); err != nil {
			return nil, err
		}
		// Untyped numeric cell holding the exact decimal text.
		amountCell, _ := excelize.CoordinatesToCellName(amountColumn, i+2)
		if err := f.SetCellDefault(recordsSheet, amountCell, r.Amount.String()); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildPDF renders a one-table report.
func BuildPDF(meta Meta, summary domain.SummaryStats, records []domain.Record) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, title(meta))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Time range: %s (%s to %s)", meta.TimeRange,
		meta.Interval.Start.Format("2006-01-02"), meta.Interval.End.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", meta.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(8)
	pdf.Cell(0, 6, fmt.Sprintf("Total: %s   Pending: %s   Paid: %s   Growth: %.2f%%",
		summary.Total.StringFixed(2), summary.PendingAmount.StringFixed(2), summary.PaidAmount.StringFixed(2), summary.GrowthPercent))
	pdf.Ln(8)

	widths := []float64{32, 24, 26, 30, 28, 20}
	pdf.SetFont("Arial", "B", 10)
	for i, h := range []string{"Date", "Category", "Status", "Source", "Amount", "Currency"} {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, r := range records {
		pdf.CellFormat(widths[0], 6, r.Date.Format("2006-01-02"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 6, r.Category, "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[2], 6, r.Status, "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[3], 6, r.Source, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[4], 6, r.Amount.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[5], 6, r.Currency, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildCSV writes the header and one line per record.
func BuildCSV(records []domain.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(recordHeader); err != nil {
		return nil, err
	}
	for _, r := range records {
		if err := w.Write([]string{
			r.Date.Format(time.RFC3339), r.ID, r.Category, r.Status, r.Amount.String(), r.Currency, r.Source,
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
