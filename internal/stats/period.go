package stats

import (
	"fmt"
	"strings"
	"time"
)

// Period names a calendar window ending at the current one.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// Periods lists every period in display order.
func Periods() []Period {
	return []Period{PeriodDay, PeriodWeek, PeriodMonth, PeriodYear, PeriodAll}
}

// ParsePeriod accepts a period name, ignoring case. "today" and "all-time"
// are accepted as aliases.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "today":
		return PeriodDay, nil
	case "week":
		return PeriodWeek, nil
	case "month":
		return PeriodMonth, nil
	case "year":
		return PeriodYear, nil
	case "all", "all-time", "alltime", "":
		return PeriodAll, nil
	}
	return "", fmt.Errorf("unknown period %q (want day, week, month, year or all)", s)
}

// Range is an inclusive time window. A zero Start or End leaves that side
// unbounded.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies within the range, bounds included.
func (r Range) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// StartOfDay returns local midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns midnight of the Monday on or before t.
func StartOfWeek(t time.Time) time.Time {
	back := int(t.Weekday()) - 1
	if t.Weekday() == time.Sunday {
		back = 6
	}
	return StartOfDay(t).AddDate(0, 0, -back)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func startOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}

// PeriodRange returns the calendar window of period p containing now. The
// window runs to the last instant of the period; PeriodAll is unbounded.
func PeriodRange(p Period, now time.Time) Range {
	var start, next time.Time
	switch p {
	case PeriodDay:
		start = StartOfDay(now)
		next = start.AddDate(0, 0, 1)
	case PeriodWeek:
		start = StartOfWeek(now)
		next = start.AddDate(0, 0, 7)
	case PeriodMonth:
		start = startOfMonth(now)
		next = start.AddDate(0, 1, 0)
	case PeriodYear:
		start = startOfYear(now)
		next = start.AddDate(1, 0, 0)
	default:
		return Range{}
	}
	return Range{Start: start, End: next.Add(-time.Nanosecond)}
}
