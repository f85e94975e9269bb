package google

import (
	"fmt"
	"strconv"
	"strings"

	"spendlens/internal/core"
)

// parseSummaries reads rows of statement_id | year | month | category | amount.
// Rows whose year is not numeric (headers, notes) are skipped. Statements
// and categories keep first-seen order; the total sums every category.
func parseSummaries(values [][]interface{}) ([]core.StatementSummary, error) {
	var out []core.StatementSummary
	index := map[string]int{}
	for n, row := range values {
		cols := toStrings(row)
		if len(cols) < 5 {
			continue
		}
		id := cols[0]
		year, err := strconv.Atoi(cols[1])
		if err != nil || id == "" {
			continue
		}
		month, err := strconv.Atoi(cols[2])
		if err != nil || core.ValidateMonth(month) != nil {
			return nil, fmt.Errorf("row %d: invalid month %q", n+1, cols[2])
		}
		amount, err := core.ParseAmount(cols[4])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid amount %q", n+1, cols[4])
		}
		category := cols[3]
		if category == "" {
			category = core.DefaultCategory
		}

		i, ok := index[id]
		if !ok {
			i = len(out)
			index[id] = i
			out = append(out, core.StatementSummary{ID: id, Year: year, Month: month})
		} else if out[i].Year != year || out[i].Month != month {
			return nil, fmt.Errorf("row %d: statement %s has conflicting periods", n+1, id)
		}
		out[i].Summary = out[i].Summary.Add(category, amount)
	}
	for i := range out {
		out[i].Total = out[i].Summary.Sum()
	}
	if out == nil {
		out = []core.StatementSummary{}
	}
	return out, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
