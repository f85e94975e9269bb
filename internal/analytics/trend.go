package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"spendlens/internal/core"
)

// TrendPoint is one entry of a chronological total series.
type TrendPoint struct {
	ID    string          `json:"id"`
	Label string          `json:"label"`
	Year  int             `json:"year"`
	Month int             `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// SortChronologically returns a copy ordered by (year, month) ascending.
// Summaries sharing a period keep their input order.
func SortChronologically(summaries []core.StatementSummary) []core.StatementSummary {
	out := make([]core.StatementSummary, len(summaries))
	copy(out, summaries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// BuildTrend orders summaries chronologically and emits one labelled
// point per summary with its sourced total.
func BuildTrend(summaries []core.StatementSummary) []TrendPoint {
	ordered := SortChronologically(summaries)
	points := make([]TrendPoint, 0, len(ordered))
	for _, s := range ordered {
		points = append(points, TrendPoint{
			ID:    s.ID,
			Label: core.MonthLabel(s.Year, s.Month),
			Year:  s.Year,
			Month: s.Month,
			Total: s.Total,
		})
	}
	return points
}

// CategoryTotals sums each category across summaries, excluded category
// removed, keys in first-encountered order.
func CategoryTotals(summaries []core.StatementSummary, exclude string) core.CategoryTotals {
	acc := core.CategoryTotals{}
	for _, s := range summaries {
		for _, ca := range s.Summary {
			if ca.Name == exclude {
				continue
			}
			acc = acc.Add(ca.Name, ca.Amount)
		}
	}
	return acc
}

// RankCategories orders the summed category totals descending. Ties keep
// first-encountered order.
func RankCategories(summaries []core.StatementSummary, exclude string) core.CategoryTotals {
	ranked := CategoryTotals(summaries, exclude)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Amount.GreaterThan(ranked[j].Amount)
	})
	return ranked
}

// TopCategories returns up to n category names by summed amount.
func TopCategories(summaries []core.StatementSummary, n int, exclude string) []string {
	if n <= 0 {
		return []string{}
	}
	ranked := RankCategories(summaries, exclude)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked.Names()
}

// AvailableYears returns the distinct years, ascending.
func AvailableYears(summaries []core.StatementSummary) []int {
	seen := make(map[int]struct{}, len(summaries))
	years := []int{}
	for _, s := range summaries {
		if _, ok := seen[s.Year]; ok {
			continue
		}
		seen[s.Year] = struct{}{}
		years = append(years, s.Year)
	}
	sort.Ints(years)
	return years
}

// FilterByYear keeps summaries from year, preserving order. Year 0 keeps all.
func FilterByYear(summaries []core.StatementSummary, year int) []core.StatementSummary {
	out := make([]core.StatementSummary, 0, len(summaries))
	for _, s := range summaries {
		if year == 0 || s.Year == year {
			out = append(out, s)
		}
	}
	return out
}

// LastN returns the n latest summaries in chronological order.
func LastN(summaries []core.StatementSummary, n int) []core.StatementSummary {
	ordered := SortChronologically(summaries)
	if n < 0 {
		n = 0
	}
	if len(ordered) > n {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}

// MostRecent returns the n latest summaries, newest first.
func MostRecent(summaries []core.StatementSummary, n int) []core.StatementSummary {
	out := make([]core.StatementSummary, len(summaries))
	copy(out, summaries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	if n < 0 {
		n = 0
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Series is one category's amounts aligned to a list of summaries.
type Series struct {
	Category string            `json:"category"`
	Values   []decimal.Decimal `json:"values"`
}

// CategorySeries aligns each category's amount to summaries, 0 where absent.
func CategorySeries(summaries []core.StatementSummary, categories []string) []Series {
	out := make([]Series, 0, len(categories))
	for _, c := range categories {
		values := make([]decimal.Decimal, len(summaries))
		for i, s := range summaries {
			v, _ := s.Summary.Get(c)
			values[i] = v
		}
		out = append(out, Series{Category: c, Values: values})
	}
	return out
}
