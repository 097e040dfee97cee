// Package calendar provides the weekday trading calendar used by the
// synthetic generator and the forecasters.
package calendar

import (
	"fmt"
	"time"

	"stocktrend/internal/model"
)

// IsWeekday returns true if t is Mon–Fri.
func IsWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsTradingDay returns true if t is a weekday. Exchange holidays are not
// modelled; the simulated market trades every weekday.
func IsTradingDay(t time.Time) bool {
	return IsWeekday(t)
}

// ParseDate parses a YYYY-MM-DD string as a UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(model.DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// Format renders a calendar day as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(model.DateLayout)
}

// TradingDays returns every trading day in [start, end] inclusive, in order.
// Returns nil when end is before start.
func TradingDays(start, end time.Time) []time.Time {
	start = truncateDay(start)
	end = truncateDay(end)
	if end.Before(start) {
		return nil
	}
	days := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsTradingDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// AddDays returns the calendar day n days after the given YYYY-MM-DD date.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return Format(t.AddDate(0, 0, n)), nil
}

// WeekStart returns the Sunday that opens t's week.
func WeekStart(t time.Time) time.Time {
	t = truncateDay(t)
	return t.AddDate(0, 0, -int(t.Weekday()))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
