package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSummarize(t *testing.T) {
	st := Statement{
		ID: "s1", Month: 3, Year: 2024,
		Transactions: []Transaction{
			{ID: "t1", Description: "KEELLS", Amount: dec("100"), Category: CategoryGrocery},
			{ID: "t2", Description: "PAYMENT CR", Amount: dec("-500"), Category: CategoryPayment},
			{ID: "t3", Description: "SHELL", Amount: dec("40"), Category: CategoryFuel},
			{ID: "t4", Description: "CARGILLS", Amount: dec("20.5"), Category: CategoryGrocery},
			{ID: "t5", Description: "MISC", Amount: dec("1"), Category: ""},
		},
	}
	s := Summarize(st)
	want := []string{CategoryGrocery, CategoryFuel, CategoryPayment, CategoryOther}
	got := s.Summary.Names()
	if len(got) != len(want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys = %v, want %v", got, want)
		}
	}
	if v, _ := s.Summary.Get(CategoryGrocery); !v.Equal(dec("120.5")) {
		t.Errorf("Grocery = %s", v)
	}
	if !s.Total.Equal(dec("-338.5")) {
		t.Errorf("total = %s, want -338.5", s.Total)
	}
	if s.ID != "s1" || s.Month != 3 || s.Year != 2024 {
		t.Errorf("period = %+v", s)
	}
}

func TestSummarizeEmptyStatement(t *testing.T) {
	s := Summarize(Statement{ID: "e", Month: 1, Year: 2024})
	if len(s.Summary) != 0 || !s.Total.IsZero() {
		t.Fatalf("got %+v", s)
	}
}

func TestStatementValidate(t *testing.T) {
	good := Transaction{
		ID: "t1", PostDate: NewDate(2024, 1, 2), InvDate: NewDate(2024, 1, 1),
		Description: "KEELLS", Amount: dec("10"), Category: CategoryGrocery,
	}
	tests := []struct {
		name    string
		st      Statement
		wantErr error
	}{
		{"valid", Statement{ID: "s", Month: 1, Year: 2024, Transactions: []Transaction{good}}, nil},
		{"empty id", Statement{Month: 1, Year: 2024}, ErrEmptyID},
		{"bad month", Statement{ID: "s", Month: 13, Year: 2024}, ErrInvalidMonth},
		{"bad year", Statement{ID: "s", Month: 1, Year: 12}, ErrInvalidYear},
		{"bad category", Statement{ID: "s", Month: 1, Year: 2024, Transactions: []Transaction{
			func() Transaction { tx := good; tx.Category = "Snacks"; return tx }(),
		}}, ErrInvalidCategory},
		{"zero dates", Statement{ID: "s", Month: 1, Year: 2024, Transactions: []Transaction{
			func() Transaction { tx := good; tx.PostDate = Date{}; return tx }(),
		}}, ErrNoTransactionDates},
		{"sub-cent amount", Statement{ID: "s", Month: 1, Year: 2024, Transactions: []Transaction{
			func() Transaction { tx := good; tx.Amount = dec("12.345"); return tx }(),
		}}, ErrSubCentAmount},
		{"trailing zero precision", Statement{ID: "s", Month: 1, Year: 2024, Transactions: []Transaction{
			func() Transaction { tx := good; tx.Amount = dec("-12.340"); return tx }(),
		}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.st.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSummaryFilterMatches(t *testing.T) {
	if !(SummaryFilter{}).Matches(5, 2023) {
		t.Error("empty filter should match")
	}
	if !(SummaryFilter{Year: 2023}).Matches(5, 2023) {
		t.Error("year filter should match")
	}
	if (SummaryFilter{Month: 4, Year: 2023}).Matches(5, 2023) {
		t.Error("month mismatch should not match")
	}
}

func TestCategories(t *testing.T) {
	cats := Categories()
	if len(cats) != 19 || cats[0] != CategoryGrocery || cats[len(cats)-1] != CategoryOther {
		t.Fatalf("unexpected set: %v", cats)
	}
	cats[0] = "mutated"
	if Categories()[0] != CategoryGrocery {
		t.Fatal("Categories must return a copy")
	}
	if IsValidCategory("Snacks") || !IsValidCategory(CategoryPayment) {
		t.Fatal("IsValidCategory mismatch")
	}
}

func TestDateJSON(t *testing.T) {
	var tx Transaction
	raw := `{"id":"t","post_date":"2024-01-05T00:00:00","inv_date":"2024-01-03","description":"x","amount":12.5,"category":"Other"}`
	if err := json.Unmarshal([]byte(raw), &tx); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tx.PostDate.Day() != 5 || tx.InvDate.Day() != 3 {
		t.Fatalf("dates = %v %v", tx.PostDate, tx.InvDate)
	}
	b, err := json.Marshal(tx.PostDate)
	if err != nil || string(b) != `"2024-01-05T00:00:00"` {
		t.Fatalf("marshal = %s, %v", b, err)
	}
	if err := json.Unmarshal([]byte(`{"post_date":"yesterday"}`), &tx); err == nil {
		t.Fatal("expected error for bad date")
	}
}

func TestMonthLabels(t *testing.T) {
	if got := MonthLabel(2024, 1); got != "Jan 2024" {
		t.Errorf("MonthLabel = %q", got)
	}
	if got := LongMonthLabel(2023, 12); got != "December 2023" {
		t.Errorf("LongMonthLabel = %q", got)
	}
	if MonthName(0) != "" || MonthName(13) != "" {
		t.Error("out of range months should be empty")
	}
}

func TestRejectedError(t *testing.T) {
	err := Reject(ReasonWrongPassword, "encrypted pdf")
	if !errors.Is(err, ErrValidationRejected) {
		t.Fatal("rejection should match ErrValidationRejected")
	}
	if UploadFailureKind(err) != UploadWrongPassword {
		t.Errorf("kind = %s", UploadFailureKind(err))
	}
	if UploadFailureKind(Reject(ReasonInvalidFormat, "")) != UploadInvalidFormat {
		t.Error("invalid format kind mismatch")
	}
	if UploadFailureKind(ErrServiceFailure) != UploadServerError {
		t.Error("generic failure should be server_error")
	}
}
