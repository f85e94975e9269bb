package services

import (
	"context"
	"errors"
	"testing"

	"spendlens/internal/core"
)

type fakeRules struct {
	rules map[string]string
	err   error
}

func (f fakeRules) LookupRule(_ context.Context, description string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	c, ok := f.rules[description]
	return c, ok, nil
}

func TestKeywordCategory(t *testing.T) {
	tests := []struct {
		desc string
		want string
	}{
		{"KEELLS SUPER COLOMBO", core.CategoryGrocery},
		{"lanka ioc filling station", core.CategoryFuel},
		{"PAYMENT RECEIVED - THANK YOU CR", core.CategoryPayment},
		{"REFUND 25.00CR", core.CategoryPayment},
		{"NETFLIX.COM", core.CategoryEntertainment},
		{"PIZZA HUT", core.CategoryDining},
		{"ZZZ UNKNOWN MERCHANT", core.CategoryOther},
		{"", core.CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := KeywordCategory(tt.desc); got != tt.want {
				t.Errorf("KeywordCategory(%q) = %s, want %s", tt.desc, got, tt.want)
			}
		})
	}
}

func TestCategorizerPrefersLearnedRules(t *testing.T) {
	c := NewCategorizer(fakeRules{rules: map[string]string{"KEELLS SUPER": core.CategoryShopping}})
	if got := c.Categorize(context.Background(), "KEELLS SUPER"); got != core.CategoryShopping {
		t.Fatalf("got %s", got)
	}
	if got := c.Categorize(context.Background(), "SHELL"); got != core.CategoryFuel {
		t.Fatalf("got %s", got)
	}
}

func TestCategorizerIgnoresInvalidAndFailingRules(t *testing.T) {
	c := NewCategorizer(fakeRules{rules: map[string]string{"SHELL": "Snacks"}})
	if got := c.Categorize(context.Background(), "SHELL"); got != core.CategoryFuel {
		t.Fatalf("invalid rule used: %s", got)
	}
	c = NewCategorizer(fakeRules{err: errors.New("db closed")})
	if got := c.Categorize(context.Background(), "SHELL"); got != core.CategoryFuel {
		t.Fatalf("got %s", got)
	}
	if got := NewCategorizer(nil).Categorize(context.Background(), "SHELL"); got != core.CategoryFuel {
		t.Fatalf("got %s", got)
	}
}
