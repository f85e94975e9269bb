package services

import (
	"sort"
	"strings"

	"spendlens/internal/core"
)

// Transaction sort keys.
const (
	SortPostDate    = "post_date"
	SortInvDate     = "inv_date"
	SortDescription = "description"
	SortAmount      = "amount"
	SortCategory    = "category"
)

// TransactionQuery filters and orders the transactions of one statement.
// Zero values keep everything in statement order.
type TransactionQuery struct {
	Search   string
	Category string
	SortBy   string
	Desc     bool
}

func ValidSortKey(key string) bool {
	switch key {
	case "", SortPostDate, SortInvDate, SortDescription, SortAmount, SortCategory:
		return true
	}
	return false
}

// QueryTransactions returns a filtered, stably sorted copy of txs.
func QueryTransactions(txs []core.Transaction, q TransactionQuery) []core.Transaction {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if needle != "" && !strings.Contains(strings.ToLower(tx.Description), needle) {
			continue
		}
		if q.Category != "" && tx.Category != q.Category {
			continue
		}
		out = append(out, tx)
	}

	less := transactionLess(q.SortBy)
	if less == nil {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		if q.Desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func transactionLess(key string) func(a, b core.Transaction) bool {
	switch key {
	case SortPostDate:
		return func(a, b core.Transaction) bool { return a.PostDate.Before(b.PostDate.Time) }
	case SortInvDate:
		return func(a, b core.Transaction) bool { return a.InvDate.Before(b.InvDate.Time) }
	case SortDescription:
		return func(a, b core.Transaction) bool {
			return strings.ToLower(a.Description) < strings.ToLower(b.Description)
		}
	case SortAmount:
		return func(a, b core.Transaction) bool { return a.Amount.LessThan(b.Amount) }
	case SortCategory:
		return func(a, b core.Transaction) bool { return a.Category < b.Category }
	}
	return nil
}
