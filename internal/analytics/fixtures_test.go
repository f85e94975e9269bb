package analytics

import (
	"github.com/shopspring/decimal"

	"spendlens/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func summary(id string, month, year int, total string, kv ...any) core.StatementSummary {
	var totals core.CategoryTotals
	for i := 0; i+1 < len(kv); i += 2 {
		totals = append(totals, core.CategoryAmount{Name: kv[i].(string), Amount: dec(kv[i+1].(string))})
	}
	return core.StatementSummary{ID: id, Month: month, Year: year, Summary: totals, Total: dec(total)}
}

// The two-statement scenario used throughout: January carries a payment credit.
func scenario() (core.StatementSummary, core.StatementSummary) {
	a := summary("A", 1, 2024, "-400", "Grocery", "100", "Payment", "-500")
	b := summary("B", 2, 2024, "200", "Grocery", "150", "Fuel", "50")
	return a, b
}
