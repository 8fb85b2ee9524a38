package service

import (
	"strings"
	"time"

	appErrors "github.com/BladexZN/dashboard-c/pkg/errors"
)

// Window names accepted by the board and reports.
const (
	WindowToday = "today"
	WindowMonth = "month"
	WindowYear  = "year"
	WindowAll   = "all"
)

// TimeRange is a half-open creation-date range. Nil bounds are open.
type TimeRange struct {
	From *time.Time
	To   *time.Time
}

// ParseWindow resolves a window name or a YYYY-MM-DD day into a range in now's
// location. An empty window means today.
func ParseWindow(window string, now time.Time) (TimeRange, error) {
	loc := now.Location()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch strings.ToLower(strings.TrimSpace(window)) {
	case "", WindowToday, "hoy":
		return dayRange(day), nil
	case WindowMonth, "este mes":
		from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		to := from.AddDate(0, 1, 0)
		return TimeRange{From: &from, To: &to}, nil
	case WindowYear, "año":
		from := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
		to := from.AddDate(1, 0, 0)
		return TimeRange{From: &from, To: &to}, nil
	case WindowAll:
		return TimeRange{}, nil
	}

	parsed, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(window), loc)
	if err != nil {
		return TimeRange{}, appErrors.Clone(appErrors.ErrValidation, "window must be today, month, year, all or YYYY-MM-DD")
	}
	return dayRange(parsed), nil
}

func dayRange(day time.Time) TimeRange {
	to := day.AddDate(0, 0, 1)
	return TimeRange{From: &day, To: &to}
}
