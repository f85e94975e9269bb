package analytics

import (
	"github.com/shopspring/decimal"

	"spendlens/internal/core"
)

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.NewFromFloat(0.5)
)

// Aggregate returns a copy of the summary's category mapping with
// exclude removed. Values pass through unvalidated.
func Aggregate(summary core.StatementSummary, exclude string) core.CategoryTotals {
	out := make(core.CategoryTotals, 0, len(summary.Summary))
	for _, ca := range summary.Summary {
		if ca.Name == exclude {
			continue
		}
		out = append(out, ca)
	}
	return out
}

// PercentageOf returns amount/total*100 rounded to the nearest integer,
// halves toward positive infinity, or 0 when total is zero.
func PercentageOf(amount, total decimal.Decimal) int {
	if total.IsZero() {
		return 0
	}
	return int(amount.Div(total).Mul(hundred).Add(half).Floor().IntPart())
}

// BreakdownRow is one slice of a statement's spending.
type BreakdownRow struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage int             `json:"percentage"`
}

// Breakdown lists categories with a positive amount, excluded category
// removed, each with its share of the statement total.
func Breakdown(summary core.StatementSummary, exclude string) []BreakdownRow {
	rows := []BreakdownRow{}
	for _, ca := range Aggregate(summary, exclude) {
		if !ca.Amount.IsPositive() {
			continue
		}
		rows = append(rows, BreakdownRow{
			Category:   ca.Name,
			Amount:     ca.Amount,
			Percentage: PercentageOf(ca.Amount, summary.Total),
		})
	}
	return rows
}
