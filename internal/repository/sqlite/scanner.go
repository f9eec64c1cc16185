package sqlite

import (
	"database/sql"

	"fretlog/internal/remote"
)

// Scanner interface defines the common scanning behavior for both sql.Row and sql.Rows
type Scanner interface {
	Scan(dest ...any) error
}

// Rows interface defines the common behavior for sql.Rows
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// ScanAll scans every row with scanFunc.
func ScanAll[T any](rows Rows, scanFunc func(Scanner) (*T, error)) ([]T, error) {
	results := []T{}
	for rows.Next() {
		v, err := scanFunc(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

const (
	userColumns        = "name, email, default_instrument_id"
	categoryColumns    = "id, name, type, icon, color"
	instrumentColumns  = "id, name, icon"
	artistColumns      = "id, name"
	libraryColumns     = "id, name, category_id, artist_id, star_rating, notes, created_at"
	sessionColumns     = "id, instrument_id, status, date, start_time, end_time, total_time, notes"
	sessionItemColumns = "id, library_item_id, name, category_id, time_spent, started_at"
)

func ScanUser(scanner Scanner) (*remote.UserRecord, error) {
	var name, email, instrument sql.NullString
	if err := scanner.Scan(&name, &email, &instrument); err != nil {
		return nil, err
	}
	return &remote.UserRecord{
		Name:                stringOr(name, "Musician"),
		Email:               email.String,
		DefaultInstrumentID: instrument.String,
	}, nil
}

func ScanCategory(scanner Scanner) (*remote.CategoryRecord, error) {
	c := &remote.CategoryRecord{}
	var icon, color sql.NullString
	if err := scanner.Scan(&c.ID, &c.Name, &c.Type, &icon, &color); err != nil {
		return nil, err
	}
	c.Icon = icon.String
	c.Color = color.String
	return c, nil
}

func ScanInstrument(scanner Scanner) (*remote.InstrumentRecord, error) {
	i := &remote.InstrumentRecord{}
	var icon sql.NullString
	if err := scanner.Scan(&i.ID, &i.Name, &icon); err != nil {
		return nil, err
	}
	i.Icon = icon.String
	return i, nil
}

func ScanArtist(scanner Scanner) (*remote.ArtistRecord, error) {
	a := &remote.ArtistRecord{}
	if err := scanner.Scan(&a.ID, &a.Name); err != nil {
		return nil, err
	}
	return a, nil
}

func ScanLibraryItem(scanner Scanner) (*remote.LibraryItemRecord, error) {
	l := &remote.LibraryItemRecord{}
	var category, artist, notes sql.NullString
	var rating sql.NullInt64
	if err := scanner.Scan(&l.ID, &l.Name, &category, &artist, &rating, &notes, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.CategoryID = category.String
	l.ArtistID = artist.String
	l.StarRating = int(rating.Int64)
	l.Notes = notes.String
	return l, nil
}

// ScanSession scans a session row without its items.
func ScanSession(scanner Scanner) (*remote.SessionRecord, error) {
	s := &remote.SessionRecord{Items: []remote.SessionItemRecord{}}
	var instrument, status, notes sql.NullString
	var start, end, total sql.NullInt64
	if err := scanner.Scan(&s.ID, &instrument, &status, &s.Date, &start, &end, &total, &notes); err != nil {
		return nil, err
	}
	s.InstrumentID = instrument.String
	s.Status = stringOr(status, "running")
	s.StartTime = remote.Millis(start.Int64)
	if end.Valid && end.Int64 != 0 {
		m := remote.Millis(end.Int64)
		s.EndTime = &m
	}
	s.TotalTime = remote.Millis(total.Int64)
	s.Notes = notes.String
	return s, nil
}

// sessionItemRow is a session item with its owning session id.
type sessionItemRow struct {
	SessionID string
	Item      remote.SessionItemRecord
}

func scanSessionItemRow(scanner Scanner) (*sessionItemRow, error) {
	r := &sessionItemRow{}
	var library, category sql.NullString
	var spent, started sql.NullInt64
	if err := scanner.Scan(&r.SessionID, &r.Item.ID, &library, &r.Item.Name, &category, &spent, &started); err != nil {
		return nil, err
	}
	r.Item.LibraryItemID = library.String
	r.Item.CategoryID = category.String
	r.Item.TimeSpent = remote.Millis(spent.Int64)
	if started.Valid {
		m := remote.Millis(started.Int64)
		r.Item.StartedAt = &m
	}
	return r, nil
}
