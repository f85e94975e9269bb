package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"spendlens/internal/analytics"
	"spendlens/internal/core"
	"spendlens/internal/services"
)

func summary(id string, month int, total string, kv ...string) core.StatementSummary {
	var totals core.CategoryTotals
	for i := 0; i+1 < len(kv); i += 2 {
		totals = append(totals, core.CategoryAmount{Name: kv[i], Amount: decimal.RequireFromString(kv[i+1])})
	}
	return core.StatementSummary{ID: id, Month: month, Year: 2024, Summary: totals, Total: decimal.RequireFromString(total)}
}

func TestAnalyticsWorkbook(t *testing.T) {
	a := summary("a", 1, "100", "Grocery", "100")
	b := summary("b", 2, "200", "Grocery", "150", "Fuel", "50")
	c := services.NewAnalyticsController(core.ExcludedCategory, 6)
	c.Load([]core.StatementSummary{a, b})

	tests := []struct {
		name       string
		pick       bool
		wantSheets []string
	}{
		{"without comparison", false, []string{TrendSheet, CategoriesSheet}},
		{"with comparison", true, []string{TrendSheet, CategoriesSheet, ComparisonSheet}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.pick {
				c.Pick(services.FirstPick, "a")
				c.Pick(services.SecondPick, "b")
			}
			buf, err := AnalyticsWorkbook(c.View())
			if err != nil {
				t.Fatal(err)
			}
			f, err := excelize.OpenReader(buf)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer f.Close()

			sheets := f.GetSheetList()
			if len(sheets) != len(tt.wantSheets) {
				t.Fatalf("sheets = %v", sheets)
			}
			for i, s := range tt.wantSheets {
				if sheets[i] != s {
					t.Errorf("sheet %d = %s, want %s", i, sheets[i], s)
				}
			}

			rows, err := f.GetRows(TrendSheet)
			if err != nil {
				t.Fatal(err)
			}
			if len(rows) != 3 || rows[1][0] != "Jan 2024" || rows[2][0] != "Feb 2024" {
				t.Errorf("trend rows = %v", rows)
			}
			if v, _ := f.GetCellValue(CategoriesSheet, "A2"); v != "Grocery" {
				t.Errorf("top category = %q", v)
			}
			if tt.pick {
				if v, _ := f.GetCellValue(ComparisonSheet, "C1"); v != "Feb 2024" {
					t.Errorf("second header = %q", v)
				}
				rows, _ := f.GetRows(ComparisonSheet)
				last := rows[len(rows)-1]
				if last[0] != "Trend" || last[len(last)-1] != analytics.Increase {
					t.Errorf("trend row = %v", last)
				}
			}
		})
	}
}

func TestAnalyticsWorkbookEmpty(t *testing.T) {
	buf, err := AnalyticsWorkbook(services.AnalyticsView{})
	if err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty workbook")
	}
}
