package sqlite

import (
	"context"
	"database/sql"

	"fretlog/internal/remote"
)

// collection adapts three functions to remote.Collection.
type collection[R any] struct {
	create func(ctx context.Context, rec R) (*R, error)
	update func(ctx context.Context, id string, rec R) (*R, error)
	remove func(ctx context.Context, id string) error
}

func (c collection[R]) Create(ctx context.Context, rec R) (*R, error) { return c.create(ctx, rec) }

func (c collection[R]) Update(ctx context.Context, id string, rec R) (*R, error) {
	return c.update(ctx, id, rec)
}

func (c collection[R]) Delete(ctx context.Context, id string) error { return c.remove(ctx, id) }

// deleteByID removes a row; deleting a missing row is not an error.
func (r *Repository) deleteByID(table string) func(ctx context.Context, id string) error {
	return func(ctx context.Context, id string) error {
		return Execute(ctx, r.db, "delete from "+table, "DELETE FROM "+table+" WHERE id = ?", id)
	}
}

func (r *Repository) Categories() remote.Collection[remote.CategoryRecord] {
	get := func(ctx context.Context, id string) (*remote.CategoryRecord, error) {
		return QuerySingle(ctx, r.db, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", ScanCategory, "category", id, id)
	}
	return collection[remote.CategoryRecord]{
		create: func(ctx context.Context, rec remote.CategoryRecord) (*remote.CategoryRecord, error) {
			rec.ID = r.newID()
			if err := Execute(ctx, r.db, "create category",
				"INSERT INTO categories (id, name, type, icon, color) VALUES (?, ?, ?, ?, ?)",
				rec.ID, rec.Name, rec.Type, rec.Icon, NullString(rec.Color)); err != nil {
				return nil, err
			}
			return get(ctx, rec.ID)
		},
		update: func(ctx context.Context, id string, rec remote.CategoryRecord) (*remote.CategoryRecord, error) {
			if err := ExecuteWithRowsAffected(ctx, r.db,
				"UPDATE categories SET name = ?, type = ?, icon = ?, color = ? WHERE id = ?",
				"category", id, rec.Name, rec.Type, rec.Icon, NullString(rec.Color), id); err != nil {
				return nil, err
			}
			return get(ctx, id)
		},
		remove: r.deleteByID("categories"),
	}
}

func (r *Repository) Instruments() remote.Collection[remote.InstrumentRecord] {
	get := func(ctx context.Context, id string) (*remote.InstrumentRecord, error) {
		return QuerySingle(ctx, r.db, "SELECT "+instrumentColumns+" FROM instruments WHERE id = ?", ScanInstrument, "instrument", id, id)
	}
	return collection[remote.InstrumentRecord]{
		create: func(ctx context.Context, rec remote.InstrumentRecord) (*remote.InstrumentRecord, error) {
			rec.ID = r.newID()
			if err := Execute(ctx, r.db, "create instrument",
				"INSERT INTO instruments (id, name, icon) VALUES (?, ?, ?)",
				rec.ID, rec.Name, rec.Icon); err != nil {
				return nil, err
			}
			return get(ctx, rec.ID)
		},
		update: func(ctx context.Context, id string, rec remote.InstrumentRecord) (*remote.InstrumentRecord, error) {
			if err := ExecuteWithRowsAffected(ctx, r.db,
				"UPDATE instruments SET name = ?, icon = ? WHERE id = ?",
				"instrument", id, rec.Name, rec.Icon, id); err != nil {
				return nil, err
			}
			return get(ctx, id)
		},
		remove: r.deleteByID("instruments"),
	}
}

// Artists dedupes on create: an existing case-insensitive name match is
// returned instead of a new row.
func (r *Repository) Artists() remote.Collection[remote.ArtistRecord] {
	get := func(ctx context.Context, id string) (*remote.ArtistRecord, error) {
		return QuerySingle(ctx, r.db, "SELECT "+artistColumns+" FROM artists WHERE id = ?", ScanArtist, "artist", id, id)
	}
	return collection[remote.ArtistRecord]{
		create: func(ctx context.Context, rec remote.ArtistRecord) (*remote.ArtistRecord, error) {
			var created *remote.ArtistRecord
			err := r.withTx(ctx, "create artist", func(tx *sql.Tx) error {
				existing, err := QueryMultiple(ctx, tx,
					"SELECT "+artistColumns+" FROM artists WHERE LOWER(name) = LOWER(?) LIMIT 1", ScanArtist, "artist", rec.Name)
				if err != nil {
					return err
				}
				if len(existing) > 0 {
					created = &existing[0]
					return nil
				}
				rec.ID = r.newID()
				created = &rec
				return Execute(ctx, tx, "create artist", "INSERT INTO artists (id, name) VALUES (?, ?)", rec.ID, rec.Name)
			})
			if err != nil {
				return nil, err
			}
			return created, nil
		},
		update: func(ctx context.Context, id string, rec remote.ArtistRecord) (*remote.ArtistRecord, error) {
			if err := ExecuteWithRowsAffected(ctx, r.db,
				"UPDATE artists SET name = ? WHERE id = ?", "artist", id, rec.Name, id); err != nil {
				return nil, err
			}
			return get(ctx, id)
		},
		remove: r.deleteByID("artists"),
	}
}

func (r *Repository) Library() remote.Collection[remote.LibraryItemRecord] {
	get := func(ctx context.Context, id string) (*remote.LibraryItemRecord, error) {
		return QuerySingle(ctx, r.db, "SELECT "+libraryColumns+" FROM library_items WHERE id = ?", ScanLibraryItem, "library item", id, id)
	}
	return collection[remote.LibraryItemRecord]{
		create: func(ctx context.Context, rec remote.LibraryItemRecord) (*remote.LibraryItemRecord, error) {
			rec.ID = r.newID()
			if rec.CreatedAt == "" {
				rec.CreatedAt = r.timestamp()
			}
			if err := Execute(ctx, r.db, "create library item", `
			INSERT INTO library_items (id, name, category_id, artist_id, star_rating, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
				rec.ID, rec.Name, NullString(rec.CategoryID), NullString(rec.ArtistID),
				rec.StarRating, rec.Notes, rec.CreatedAt); err != nil {
				return nil, err
			}
			return get(ctx, rec.ID)
		},
		update: func(ctx context.Context, id string, rec remote.LibraryItemRecord) (*remote.LibraryItemRecord, error) {
			if err := ExecuteWithRowsAffected(ctx, r.db, `
			UPDATE library_items SET name = ?, category_id = ?, artist_id = ?, star_rating = ?, notes = ?
			WHERE id = ?`,
				"library item", id, rec.Name, NullString(rec.CategoryID), NullString(rec.ArtistID),
				rec.StarRating, rec.Notes, id); err != nil {
				return nil, err
			}
			return get(ctx, id)
		},
		remove: r.deleteByID("library_items"),
	}
}

// Sessions stores historical sessions. Create upserts, so re-posting a
// session with a known id overwrites it and replaces its items.
func (r *Repository) Sessions() remote.Collection[remote.SessionRecord] {
	return collection[remote.SessionRecord]{
		create: func(ctx context.Context, rec remote.SessionRecord) (*remote.SessionRecord, error) {
			rec.Items = append([]remote.SessionItemRecord(nil), rec.Items...)
			if err := r.withTx(ctx, "save session", func(tx *sql.Tx) error {
				return r.upsertSession(ctx, tx, &rec, statusCompleted)
			}); err != nil {
				return nil, err
			}
			return r.session(ctx, r.db, rec.ID)
		},
		update: func(ctx context.Context, id string, rec remote.SessionRecord) (*remote.SessionRecord, error) {
			rec.ID = id
			rec.Items = append([]remote.SessionItemRecord(nil), rec.Items...)
			if err := r.withTx(ctx, "update session", func(tx *sql.Tx) error {
				if err := ExecuteWithRowsAffected(ctx, tx, `
				UPDATE sessions SET instrument_id = ?, status = ?, date = ?, end_time = ?, total_time = ?, notes = ?
				WHERE id = ?`,
					"session", id, NullString(rec.InstrumentID), rec.Status, rec.Date,
					NullInt64(rec.EndTime), int64(rec.TotalTime), rec.Notes, id); err != nil {
					return err
				}
				return r.replaceItems(ctx, tx, &rec)
			}); err != nil {
				return nil, err
			}
			return r.session(ctx, r.db, id)
		},
		remove: func(ctx context.Context, id string) error {
			return r.withTx(ctx, "delete session", func(tx *sql.Tx) error {
				return r.deleteSession(ctx, tx, id)
			})
		},
	}
}
