package analytics

import (
	"reflect"
	"testing"

	"spendlens/internal/core"
)

func TestBuildTrendScenario(t *testing.T) {
	a, b := scenario()
	points := BuildTrend([]core.StatementSummary{b, a})
	if len(points) != 2 {
		t.Fatalf("len = %d", len(points))
	}
	if points[0].Label != "Jan 2024" || !points[0].Total.Equal(dec("-400")) {
		t.Errorf("point 0 = %+v", points[0])
	}
	if points[1].Label != "Feb 2024" || !points[1].Total.Equal(dec("200")) {
		t.Errorf("point 1 = %+v", points[1])
	}
}

func TestBuildTrendOrderingAndCardinality(t *testing.T) {
	in := []core.StatementSummary{
		summary("d", 3, 2024, "4"),
		summary("a", 12, 2022, "1"),
		summary("b1", 1, 2023, "2"),
		summary("c", 11, 2023, "3"),
		summary("b2", 1, 2023, "5"),
	}
	points := BuildTrend(in)
	if len(points) != len(in) {
		t.Fatalf("len = %d, want %d", len(points), len(in))
	}
	var ids []string
	for _, p := range points {
		ids = append(ids, p.ID)
	}
	want := []string{"a", "b1", "b2", "c", "d"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	if in[0].ID != "d" {
		t.Fatal("input was reordered")
	}
}

func TestBuildTrendEmpty(t *testing.T) {
	if got := BuildTrend(nil); got == nil || len(got) != 0 {
		t.Fatalf("got %#v", got)
	}
}

func TestTopCategories(t *testing.T) {
	in := []core.StatementSummary{
		summary("1", 1, 2024, "0", "Fuel", "30", "Grocery", "50", "Payment", "-900", "Travel", "10"),
		summary("2", 2, 2024, "0", "Travel", "20", "Dining/Restaurants", "80", "Payment", "-100"),
	}
	tests := []struct {
		name string
		n    int
		want []string
	}{
		{"top two", 2, []string{"Dining/Restaurants", "Grocery"}},
		{"ties keep first seen", 4, []string{"Dining/Restaurants", "Grocery", "Fuel", "Travel"}},
		{"fewer than n", 10, []string{"Dining/Restaurants", "Grocery", "Fuel", "Travel"}},
		{"zero", 0, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TopCategories(in, tt.n, core.ExcludedCategory)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for _, c := range got {
				if c == core.ExcludedCategory {
					t.Fatal("excluded category leaked into ranking")
				}
			}
		})
	}
}

func TestTopCategoriesEmpty(t *testing.T) {
	if got := TopCategories(nil, 3, core.ExcludedCategory); len(got) != 0 {
		t.Fatalf("got %v", got)
	}
}

func TestRankCategoriesDescending(t *testing.T) {
	in := []core.StatementSummary{
		summary("1", 1, 2024, "0", "A", "1", "B", "3", "C", "2"),
		summary("2", 2, 2024, "0", "A", "5"),
	}
	ranked := RankCategories(in, core.ExcludedCategory)
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Amount.GreaterThan(ranked[i-1].Amount) {
			t.Fatalf("not descending: %+v", ranked)
		}
	}
	if ranked[0].Name != "A" || !ranked[0].Amount.Equal(dec("6")) {
		t.Fatalf("first = %+v", ranked[0])
	}
}

func TestAvailableYears(t *testing.T) {
	in := []core.StatementSummary{
		summary("1", 1, 2024, "0"),
		summary("2", 5, 2022, "0"),
		summary("3", 2, 2024, "0"),
		summary("4", 7, 2023, "0"),
	}
	if got := AvailableYears(in); !reflect.DeepEqual(got, []int{2022, 2023, 2024}) {
		t.Fatalf("got %v", got)
	}
	if got := AvailableYears(nil); len(got) != 0 {
		t.Fatalf("empty input gave %v", got)
	}
}

func TestFilterLastAndRecent(t *testing.T) {
	in := []core.StatementSummary{
		summary("mar24", 3, 2024, "0"),
		summary("dec23", 12, 2023, "0"),
		summary("jan24", 1, 2024, "0"),
		summary("feb24", 2, 2024, "0"),
	}
	ids := func(ss []core.StatementSummary) []string {
		out := []string{}
		for _, s := range ss {
			out = append(out, s.ID)
		}
		return out
	}
	if got := ids(FilterByYear(in, 2024)); !reflect.DeepEqual(got, []string{"mar24", "jan24", "feb24"}) {
		t.Errorf("FilterByYear = %v", got)
	}
	if got := ids(FilterByYear(in, 0)); len(got) != 4 {
		t.Errorf("FilterByYear(0) = %v", got)
	}
	if got := ids(LastN(in, 2)); !reflect.DeepEqual(got, []string{"feb24", "mar24"}) {
		t.Errorf("LastN = %v", got)
	}
	if got := ids(MostRecent(in, 2)); !reflect.DeepEqual(got, []string{"mar24", "feb24"}) {
		t.Errorf("MostRecent = %v", got)
	}
	if got := ids(MostRecent(in, 10)); len(got) != 4 {
		t.Errorf("MostRecent(10) = %v", got)
	}
}

func TestCategorySeries(t *testing.T) {
	a, b := scenario()
	series := CategorySeries([]core.StatementSummary{a, b}, []string{"Grocery", "Fuel"})
	if len(series) != 2 {
		t.Fatalf("series = %+v", series)
	}
	if !series[0].Values[0].Equal(dec("100")) || !series[0].Values[1].Equal(dec("150")) {
		t.Errorf("Grocery = %v", series[0].Values)
	}
	if !series[1].Values[0].IsZero() || !series[1].Values[1].Equal(dec("50")) {
		t.Errorf("Fuel = %v", series[1].Values)
	}
}
