package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Categories, in the order the statement service reports them.
const (
	CategoryGrocery        = "Grocery"
	CategoryFuel           = "Fuel"
	CategoryTextile        = "Textile"
	CategoryDining         = "Dining/Restaurants"
	CategoryUtilities      = "Utilities"
	CategoryHousing        = "Housing"
	CategoryHealthcare     = "Healthcare"
	CategoryEntertainment  = "Entertainment"
	CategoryTravel         = "Travel"
	CategoryTransportation = "Transportation"
	CategoryShopping       = "Shopping"
	CategoryEducation      = "Education"
	CategoryPersonalCare   = "Personal Care"
	CategorySubscriptions  = "Subscriptions"
	CategoryInsurance      = "Insurance"
	CategoryGifts          = "Gifts/Donations"
	CategoryFinancial      = "Financial"
	CategoryPayment        = "Payment"
	CategoryOther          = "Other"
)

// DefaultCategory is assigned to transactions nothing else matched.
const DefaultCategory = CategoryOther

// ExcludedCategory is the settlement category left out of spending views.
const ExcludedCategory = CategoryPayment

var categories = []string{
	CategoryGrocery, CategoryFuel, CategoryTextile, CategoryDining, CategoryUtilities,
	CategoryHousing, CategoryHealthcare, CategoryEntertainment, CategoryTravel,
	CategoryTransportation, CategoryShopping, CategoryEducation, CategoryPersonalCare,
	CategorySubscriptions, CategoryInsurance, CategoryGifts, CategoryFinancial,
	CategoryPayment, CategoryOther,
}

// Categories returns the closed category set in canonical order.
func Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

// IsValidCategory reports whether name belongs to the closed set.
func IsValidCategory(name string) bool {
	for _, c := range categories {
		if c == name {
			return true
		}
	}
	return false
}

type (
	// Transaction is a single line of a card statement. Only Category is mutable.
	Transaction struct {
		ID          string          `json:"id"`
		PostDate    Date            `json:"post_date"`
		InvDate     Date            `json:"inv_date"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
	}

	Statement struct {
		ID           string        `json:"id"`
		Filename     string        `json:"filename"`
		Month        int           `json:"month"`
		Year         int           `json:"year"`
		UploadDate   Date          `json:"upload_date"`
		Transactions []Transaction `json:"transactions"`
	}

	// StatementSummary is the service-computed aggregate of one statement.
	// Total is sourced, never recomputed by the analytics engine.
	StatementSummary struct {
		ID      string          `json:"id"`
		Month   int             `json:"month"`
		Year    int             `json:"year"`
		Summary CategoryTotals  `json:"summary"`
		Total   decimal.Decimal `json:"total"`
	}

	// SummaryFilter narrows a summary listing. Zero fields match everything.
	SummaryFilter struct {
		Month int
		Year  int
	}

	// UploadResult describes a statement accepted by the service.
	UploadResult struct {
		ID       string `json:"id,omitempty"`
		Filename string `json:"filename"`
		Month    int    `json:"month"`
		Year     int    `json:"year"`
	}
)

var (
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidYear        = errors.New("invalid year")
	ErrEmptyID            = errors.New("empty id")
	ErrEmptyDescription   = errors.New("empty description")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrNoTransactionDates = errors.New("transaction dates cannot be zero")
	ErrSubCentAmount      = errors.New("amount has more than two decimal places")
)

func ValidateMonth(month int) error {
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if t.PostDate.IsZero() || t.InvDate.IsZero() {
		return ErrNoTransactionDates
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	// Local stores keep integer cents.
	if !t.Amount.Equal(t.Amount.Truncate(2)) {
		return ErrSubCentAmount
	}
	if !IsValidCategory(t.Category) {
		return ErrInvalidCategory
	}
	return nil
}

func (s Statement) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return ErrEmptyID
	}
	if err := ValidateMonth(s.Month); err != nil {
		return err
	}
	if s.Year < 1900 || s.Year > 9999 {
		return ErrInvalidYear
	}
	for _, t := range s.Transactions {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transaction %s: %w", t.ID, err)
		}
	}
	return nil
}

// Matches reports whether the summary's period satisfies the filter.
func (f SummaryFilter) Matches(month, year int) bool {
	if f.Month != 0 && f.Month != month {
		return false
	}
	if f.Year != 0 && f.Year != year {
		return false
	}
	return true
}

// TransactionTotal sums every transaction amount in the statement.
func (s Statement) TransactionTotal() decimal.Decimal {
	total := decimal.Zero
	for _, t := range s.Transactions {
		total = total.Add(t.Amount)
	}
	return total
}

// Summarize reduces a statement to its category totals. Keys appear in
// canonical category order, only for categories with at least one
// transaction. Total includes every key, settlement category included.
func Summarize(s Statement) StatementSummary {
	var acc CategoryTotals
	for _, t := range s.Transactions {
		name := t.Category
		if name == "" {
			name = DefaultCategory
		}
		acc = acc.Add(name, t.Amount)
	}
	ordered := CanonicalOrder(acc)
	return StatementSummary{
		ID:      s.ID,
		Month:   s.Month,
		Year:    s.Year,
		Summary: ordered,
		Total:   ordered.Sum(),
	}
}

// CanonicalOrder returns totals reordered to the canonical category
// order. Labels outside the closed set follow in their original order.
func CanonicalOrder(totals CategoryTotals) CategoryTotals {
	ordered := make(CategoryTotals, 0, len(totals))
	for _, c := range categories {
		if amount, ok := totals.Get(c); ok {
			ordered = append(ordered, CategoryAmount{Name: c, Amount: amount})
		}
	}
	for _, ca := range totals {
		if !IsValidCategory(ca.Name) {
			ordered = append(ordered, ca)
		}
	}
	return ordered
}
