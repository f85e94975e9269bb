// Package report renders analytics views as spreadsheets.
package report

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"spendlens/internal/analytics"
	"spendlens/internal/core"
	"spendlens/internal/services"
)

const (
	TrendSheet      = "Trend"
	CategoriesSheet = "Categories"
	ComparisonSheet = "Comparison"

	headerColor = "#2D3436"
	amountFmt   = 4 // #,##0.00
)

// AnalyticsWorkbook writes the trend, ranked category totals and, when
// two statements are picked, their comparison into an xlsx workbook.
func AnalyticsWorkbook(view services.AnalyticsView) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TrendSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: amountFmt})
	if err != nil {
		return nil, fmt.Errorf("amount style: %w", err)
	}
	w := &sheetWriter{f: f, headerStyle: headerStyle, amountStyle: amountStyle}

	w.header(TrendSheet, "Period", "Total")
	for i, p := range view.Trend {
		w.row(TrendSheet, i+2, p.Label, p.Total)
	}
	w.widths(TrendSheet, 14, 16)

	w.sheet(CategoriesSheet)
	w.header(CategoriesSheet, "Category", "Amount", "Share %")
	total := view.CategoryTotals.Sum()
	for i, ca := range view.CategoryTotals {
		w.row(CategoriesSheet, i+2, ca.Name, ca.Amount, analytics.PercentageOf(ca.Amount, total))
	}
	w.widths(CategoriesSheet, 18, 16, 10)

	if c := view.Comparison; c != nil {
		w.sheet(ComparisonSheet)
		w.header(ComparisonSheet, "Category",
			core.MonthLabel(c.First.Year, c.First.Month),
			core.MonthLabel(c.Second.Year, c.Second.Month),
			"Change")
		row := 2
		for _, r := range c.Rows {
			w.row(ComparisonSheet, row, r.Category, r.First, r.Second, r.Second.Sub(r.First))
			row++
		}
		w.row(ComparisonSheet, row+1, "Total", c.First.Total, c.Second.Total, c.Difference)
		w.row(ComparisonSheet, row+2, "Change %", "", "", c.Percentage)
		w.row(ComparisonSheet, row+3, "Trend", "", "", c.Classification)
		w.widths(ComparisonSheet, 18, 14, 14, 14)
	}

	if w.err != nil {
		return nil, w.err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

// sheetWriter keeps the first error so the layout code stays linear.
type sheetWriter struct {
	f           *excelize.File
	headerStyle int
	amountStyle int
	err         error
}

func (w *sheetWriter) sheet(name string) {
	if w.err != nil {
		return
	}
	if _, err := w.f.NewSheet(name); err != nil {
		w.err = fmt.Errorf("new sheet %s: %w", name, err)
	}
}

func (w *sheetWriter) header(sheet string, titles ...string) {
	if w.err != nil {
		return
	}
	values := make([]any, len(titles))
	for i, t := range titles {
		values[i] = t
	}
	w.setRow(sheet, 1, values)
	if w.err == nil {
		last, _ := excelize.CoordinatesToCellName(len(titles), 1)
		w.err = w.f.SetCellStyle(sheet, "A1", last, w.headerStyle)
	}
}

// row writes values; decimals become numeric cells with the amount format.
func (w *sheetWriter) row(sheet string, n int, values ...any) {
	if w.err != nil {
		return
	}
	cells := make([]any, len(values))
	for i, v := range values {
		d, ok := v.(decimal.Decimal)
		if !ok {
			cells[i] = v
			continue
		}
		cells[i] = d.InexactFloat64()
		cell, _ := excelize.CoordinatesToCellName(i+1, n)
		if err := w.f.SetCellStyle(sheet, cell, cell, w.amountStyle); err != nil {
			w.err = err
			return
		}
	}
	w.setRow(sheet, n, cells)
}

func (w *sheetWriter) setRow(sheet string, n int, cells []any) {
	cell, _ := excelize.CoordinatesToCellName(1, n)
	if err := w.f.SetSheetRow(sheet, cell, &cells); err != nil {
		w.err = fmt.Errorf("write %s row %d: %w", sheet, n, err)
	}
}

func (w *sheetWriter) widths(sheet string, widths ...float64) {
	if w.err != nil {
		return
	}
	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := w.f.SetColWidth(sheet, col, col, width); err != nil {
			w.err = err
			return
		}
	}
}
