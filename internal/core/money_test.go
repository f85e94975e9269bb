package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"1,234.50", "1234.5", true},
		{"1,234,567", "1234567", true},
		{" 2.50 ", "2.5", true},
		{"-12.00", "-12", true},
		{"5,000.00 CR", "-5000", true},
		{"75.10CR", "-75.1", true},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
		{"CR", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			if err == nil {
				t.Fatalf("%q expected error, got %s", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q unexpected error: %v", tc.in, err)
		}
		if !got.Equal(decimal.RequireFromString(tc.out)) {
			t.Fatalf("%q expected %s, got %s", tc.in, tc.out, got)
		}
	}
}

func TestCentsConversion(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
	}{
		{"12.34", 1234},
		{"0.005", 1},
		{"-0.005", -1},
		{"-400", -40000},
		{"1.004", 100},
	}
	for _, tc := range cases {
		got := ToCents(decimal.RequireFromString(tc.in))
		if got != tc.cents {
			t.Errorf("ToCents(%s) = %d, want %d", tc.in, got, tc.cents)
		}
	}
	if !FromCents(1234).Equal(decimal.RequireFromString("12.34")) {
		t.Errorf("FromCents(1234) = %s", FromCents(1234))
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[string]string{
		"0":          "0.00",
		"12.5":       "12.50",
		"1234.567":   "1,234.57",
		"-1234567.1": "-1,234,567.10",
		"999":        "999.00",
	}
	for in, want := range cases {
		if got := FormatAmount(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatAmount(%s) = %q, want %q", in, got, want)
		}
	}
}
