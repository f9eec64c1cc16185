package sqlite

import (
	"database/sql"
	"time"
)

// TimestampLayout is the ISO-8601 form used for TEXT timestamp columns.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// FormatTimeForDB formats t on its own wall clock without a zone, the form
// the created_at and date columns have always used.
func FormatTimeForDB(t time.Time) string {
	return t.Format(TimestampLayout)
}

// NullString stores empty strings as NULL.
func NullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// NullInt64 stores a nil pointer as NULL.
func NullInt64[T ~int64](v *T) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func stringOr(ns sql.NullString, def string) string {
	if ns.Valid {
		return ns.String
	}
	return def
}
