package core

import (
	"fmt"
	"time"
)

// MonthName returns the English month name, or "" outside 1-12.
func MonthName(month int) string {
	if ValidateMonth(month) != nil {
		return ""
	}
	return time.Month(month).String()
}

// MonthLabel formats a period as "Jan 2024".
func MonthLabel(year, month int) string {
	name := MonthName(month)
	if name == "" {
		return fmt.Sprintf("%d %d", month, year)
	}
	return fmt.Sprintf("%s %d", name[:3], year)
}

// LongMonthLabel formats a period as "January 2024".
func LongMonthLabel(year, month int) string {
	name := MonthName(month)
	if name == "" {
		return fmt.Sprintf("%d %d", month, year)
	}
	return fmt.Sprintf("%s %d", name, year)
}
