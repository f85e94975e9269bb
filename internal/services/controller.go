package services

import (
	"spendlens/internal/analytics"
	"spendlens/internal/core"
)

// Comparison pick slots.
const (
	FirstPick = iota
	SecondPick
)

// AnalyticsView is what the analytics page renders.
type AnalyticsView struct {
	Year           int                         `json:"year"`
	Years          []int                       `json:"years"`
	Summaries      []core.StatementSummary     `json:"summaries"`
	Trend          []analytics.TrendPoint      `json:"trend"`
	CategoryTotals core.CategoryTotals         `json:"category_totals"`
	TopCategories  []string                    `json:"top_categories"`
	Picks          [2]string                   `json:"picks"`
	Comparison     *analytics.ComparisonResult `json:"comparison,omitempty"`
}

// AnalyticsController holds the state of one analytics page: the loaded
// summaries, the year filter and two comparison picks. The filter narrows
// the trend and totals only; picks resolve against everything loaded.
// It is not safe for concurrent use.
type AnalyticsController struct {
	exclude   string
	topN      int
	summaries []core.StatementSummary
	year      int
	picks     [2]string
}

func NewAnalyticsController(exclude string, topN int) *AnalyticsController {
	return &AnalyticsController{exclude: exclude, topN: topN}
}

// Load replaces the summaries. Picks that no longer resolve are cleared.
func (c *AnalyticsController) Load(summaries []core.StatementSummary) {
	c.summaries = append([]core.StatementSummary(nil), summaries...)
	for i, id := range c.picks {
		if _, ok := findSummary(c.summaries, id); !ok {
			c.picks[i] = ""
		}
	}
}

// SetYearFilter narrows the view to one year; 0 shows every year.
// Changing the filter clears both picks.
func (c *AnalyticsController) SetYearFilter(year int) {
	if year == c.year {
		return
	}
	c.year = year
	c.picks = [2]string{}
}

// Pick sets a comparison slot. Unknown ids are ignored; an empty id
// clears the slot.
func (c *AnalyticsController) Pick(slot int, id string) {
	if slot != FirstPick && slot != SecondPick {
		return
	}
	if id == "" {
		c.picks[slot] = ""
		return
	}
	if _, ok := findSummary(c.summaries, id); ok {
		c.picks[slot] = id
	}
}

func (c *AnalyticsController) visible() []core.StatementSummary {
	if c.year == 0 {
		return c.summaries
	}
	return analytics.FilterByYear(c.summaries, c.year)
}

func (c *AnalyticsController) View() AnalyticsView {
	visible := analytics.SortChronologically(c.visible())
	v := AnalyticsView{
		Year:           c.year,
		Years:          analytics.AvailableYears(c.summaries),
		Summaries:      visible,
		Trend:          analytics.BuildTrend(visible),
		CategoryTotals: analytics.RankCategories(visible, c.exclude),
		TopCategories:  analytics.TopCategories(visible, c.topN, c.exclude),
		Picks:          c.picks,
	}
	if res, ok := selectPair(c.summaries, c.picks[FirstPick], c.picks[SecondPick], c.exclude); ok {
		v.Comparison = res
	}
	return v
}
