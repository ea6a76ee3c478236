package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/daylog/internal/constants"
)

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

// NowInTimezone returns the current time in the specified timezone.
func NowInTimezone(timezone string) (time.Time, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return time.Now().In(loc), nil
}

// DayKey returns the YYYY-MM-DD key of t's wall-clock date in t's location.
func DayKey(t time.Time) string {
	return t.Format(constants.DateFormat)
}

// MonthKey returns the YYYY-MM key of t's wall-clock date.
func MonthKey(t time.Time) string {
	return t.Format(constants.MonthFormat)
}

// WeekKey returns the ISO week key (YYYY-Www) for t.
// The year is the ISO week-numbering year, so 2026-12-31 maps to 2026-W53
// and 2027-01-01 maps to 2026-W53 as well.
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// MonthKeyOfDay returns the month key a day key belongs to.
func MonthKeyOfDay(dayKey string) (string, error) {
	if _, err := time.Parse(constants.DateFormat, dayKey); err != nil {
		return "", fmt.Errorf("invalid day key %q: %w", dayKey, err)
	}
	return dayKey[:7], nil
}

// ParseDayKey parses a YYYY-MM-DD key at midnight in loc.
func ParseDayKey(dayKey string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(constants.DateFormat, dayKey)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day key %q: %w", dayKey, err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}

// ParseMonthKey parses a YYYY-MM key to the first of the month in loc.
func ParseMonthKey(monthKey string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(constants.MonthFormat, monthKey)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month key %q: %w", monthKey, err)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc), nil
}

// ParseWeekKey parses a YYYY-Www key to the Monday starting that ISO week.
func ParseWeekKey(weekKey string, loc *time.Location) (time.Time, error) {
	var year, week int
	if _, err := fmt.Sscanf(weekKey, "%4d-W%2d", &year, &week); err != nil {
		return time.Time{}, fmt.Errorf("invalid week key %q: %w", weekKey, err)
	}
	// Sscanf stops at the last verb, so trailing input must be caught here.
	if week < 1 || week > 53 || weekKey != fmt.Sprintf("%04d-W%02d", year, week) {
		return time.Time{}, fmt.Errorf("invalid week key %q", weekKey)
	}
	// January 4th is always in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	start := WeekStart(jan4).AddDate(0, 0, (week-1)*7)
	if WeekKey(start) != fmt.Sprintf("%d-W%02d", year, week) {
		return time.Time{}, fmt.Errorf("invalid week key %q: year has no week %d", weekKey, week)
	}
	return start, nil
}

// WeekStart returns midnight of the Monday on or before t.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return d.AddDate(0, 0, -offset)
}

// WeekEnd returns midnight of the Sunday ending t's week.
func WeekEnd(t time.Time) time.Time {
	return WeekStart(t).AddDate(0, 0, 6)
}

// WeekDays returns the seven days of t's week, Monday first.
func WeekDays(t time.Time) []time.Time {
	start := WeekStart(t)
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// MonthDays returns every day of t's month.
func MonthDays(t time.Time) []time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	n := DaysInMonth(t)
	days := make([]time.Time, n)
	for i := range days {
		days[i] = first.AddDate(0, 0, i)
	}
	return days
}

// DaysInMonth returns the number of days in t's month.
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// AddMonths moves t by n calendar months, clamped to the first of the month.
func AddMonths(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, t.Location())
}

// IsSameDay reports whether a and b share a wall-clock date.
func IsSameDay(a, b time.Time) bool {
	return DayKey(a) == DayKey(b)
}

// FormatWeekRange renders a week's date range, e.g. "Feb 16 - Feb 22, 2026".
func FormatWeekRange(t time.Time) string {
	start, end := WeekStart(t), WeekEnd(t)
	return fmt.Sprintf("%s - %s, %d", start.Format("Jan 2"), end.Format("Jan 2"), end.Year())
}

// FormatInstant renders t as an ISO-8601 UTC instant with millisecond precision.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(constants.InstantFormat)
}

var instantLayouts = []string{
	time.RFC3339Nano,
	constants.InstantFormat,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	constants.DateFormat,
}

// ParseInstant parses an updatedAt timestamp. Missing or unparseable values
// compare as the Unix epoch.
func ParseInstant(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Unix(0, 0).UTC()
	}
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Unix(0, 0).UTC()
}

// ValidateTimeFormat checks that a time string is in HH:MM format.
func ValidateTimeFormat(timeStr string) error {
	if _, err := time.Parse(constants.TimeFormat, timeStr); err != nil {
		return fmt.Errorf("invalid time format %q, expected HH:MM", timeStr)
	}
	return nil
}
