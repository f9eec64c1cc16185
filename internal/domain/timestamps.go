package domain

import (
	"fmt"
	"strings"
	"time"

	"fretlog/internal/remote"
)

// TimestampLayout is the ISO form written for session dates. Fixed
// millisecond precision keeps lexical and chronological order aligned.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var zoneLessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339 with or without fractional seconds and
// zone-less ISO timestamps, which are read as local time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range zoneLessLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

// FromMillis converts epoch milliseconds; zero stays the zero time.
func FromMillis(m remote.Millis) time.Time {
	if m == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(m))
}

// ToMillis converts to epoch milliseconds; the zero time becomes zero.
func ToMillis(t time.Time) remote.Millis {
	if t.IsZero() {
		return 0
	}
	return remote.Millis(t.UnixMilli())
}

// DurationFromMillis converts a millisecond count to a Duration.
func DurationFromMillis(m remote.Millis) time.Duration {
	if m < 0 {
		return 0
	}
	return time.Duration(m) * time.Millisecond
}

// DurationToMillis truncates d to whole milliseconds.
func DurationToMillis(d time.Duration) remote.Millis {
	return remote.Millis(d / time.Millisecond)
}
