package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the ISO calendar-date format exchanged with the backend.
	DateLayout = "2006-01-02"
	// MonthLayout is the zero-padded year-month grouping key.
	MonthLayout = "2006-01"

	displayLayout      = "January 2, 2006"
	monthDisplayLayout = "January 2006"
	noonHour           = 12
)

// ParseDate reads a calendar date and pins it to noon UTC so that no timezone
// conversion can move it to a neighbouring day.
func ParseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if len(trimmed) > len(DateLayout) {
		trimmed = trimmed[:len(DateLayout)]
	}
	day, err := time.Parse(DateLayout, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return AtNoon(day), nil
}

// AtNoon normalizes t to 12:00 UTC on the same calendar day.
func AtNoon(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), noonHour, 0, 0, 0, time.UTC)
}

// Today returns the calendar date of now in the given location, as a date string.
func Today(now time.Time, loc *time.Location) string {
	if loc != nil {
		now = now.In(loc)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), noonHour, 0, 0, 0, time.UTC).Format(DateLayout)
}

// MonthKey derives the YYYY-MM key of a date string. Unparseable dates fall
// into the "unknown" bucket.
func MonthKey(date string) string {
	day, err := ParseDate(date)
	if err != nil {
		return UnknownMonth
	}
	return day.Format(MonthLayout)
}

// UnknownMonth groups records whose date could not be read.
const UnknownMonth = "unknown"

// FormatDate renders a date string for display, e.g. "March 1, 2024".
func FormatDate(date string) string {
	if strings.TrimSpace(date) == "" {
		return "N/A"
	}
	day, err := ParseDate(date)
	if err != nil {
		return "Invalid Date"
	}
	return day.Format(displayLayout)
}

// FormatMonth renders a YYYY-MM key as "March 2024".
func FormatMonth(key string) string {
	month, err := time.Parse(MonthLayout, key)
	if err != nil {
		return key
	}
	return month.Format(monthDisplayLayout)
}
