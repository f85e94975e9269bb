package analytics

import (
	"github.com/shopspring/decimal"

	"spendlens/internal/core"
)

// Classification of a comparison by the sign of its difference.
const (
	Increase  = "increase"
	Decrease  = "decrease"
	Unchanged = "unchanged"
)

// ComparisonRow aligns one category across both statements.
type ComparisonRow struct {
	Category string          `json:"category"`
	First    decimal.Decimal `json:"first"`
	Second   decimal.Decimal `json:"second"`
}

// ComparisonResult is the delta between two statements. Percentage is
// relative to First.
type ComparisonResult struct {
	First          core.StatementSummary `json:"first"`
	Second         core.StatementSummary `json:"second"`
	Rows           []ComparisonRow       `json:"rows"`
	Difference     decimal.Decimal       `json:"difference"`
	Percentage     decimal.Decimal       `json:"percentage"`
	Classification string                `json:"classification"`
}

// Categories returns the category universe in row order.
func (r ComparisonResult) Categories() []string {
	names := make([]string, len(r.Rows))
	for i, row := range r.Rows {
		names[i] = row.Category
	}
	return names
}

// Compare computes the delta from a to b. The category universe is a's
// keys followed by keys first seen in b, exclude removed; a missing key
// counts as zero.
func Compare(a, b core.StatementSummary, exclude string) ComparisonResult {
	universe := make([]string, 0, len(a.Summary)+len(b.Summary))
	seen := make(map[string]struct{}, cap(universe))
	for _, src := range []core.CategoryTotals{a.Summary, b.Summary} {
		for _, ca := range src {
			if ca.Name == exclude {
				continue
			}
			if _, ok := seen[ca.Name]; ok {
				continue
			}
			seen[ca.Name] = struct{}{}
			universe = append(universe, ca.Name)
		}
	}

	rows := make([]ComparisonRow, 0, len(universe))
	for _, name := range universe {
		first, _ := a.Summary.Get(name)
		second, _ := b.Summary.Get(name)
		rows = append(rows, ComparisonRow{Category: name, First: first, Second: second})
	}

	diff := b.Total.Sub(a.Total)
	pct := decimal.Zero
	if !a.Total.IsZero() {
		pct = diff.Div(a.Total).Mul(hundred).Round(2)
	}

	return ComparisonResult{
		First:          a,
		Second:         b,
		Rows:           rows,
		Difference:     diff,
		Percentage:     pct,
		Classification: Classify(diff),
	}
}

// Classify maps the sign of a difference to its tag.
func Classify(diff decimal.Decimal) string {
	switch diff.Sign() {
	case 1:
		return Increase
	case -1:
		return Decrease
	default:
		return Unchanged
	}
}
