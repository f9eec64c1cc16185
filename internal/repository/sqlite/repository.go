package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apperrors "fretlog/internal/errors"
	"fretlog/internal/remote"
	"fretlog/internal/repository/sqlite/migrations"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const (
	defaultTheme      = "dark"
	defaultUserName   = "Musician"
	settingTheme      = "theme"
	settingCurrent    = "current_session"
	statusRunning     = "running"
	statusCompleted   = "completed"
	busyTimeoutMillis = 5000
)

// Repository is an embedded FretLog store on SQLite. It answers the same
// remote.Remote contract as the HTTP client.
type Repository struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
	newID  func() string
}

var _ remote.Remote = (*Repository)(nil)

// Option configures a Repository.
type Option func(*Repository)

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Repository) { r.logger = logger.With().Str("component", "sqlite").Logger() }
}

func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(r *Repository) { r.newID = newID }
}

// NewID returns a 16 character hex identifier.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// New opens (creating if needed) the database at dbPath and migrates it.
func New(ctx context.Context, dbPath string, opts ...Option) (*Repository, error) {
	if dbPath != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, apperrors.NewDatabaseError("create database directory", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperrors.NewDatabaseError("open database", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	r := &Repository{
		db:     db,
		logger: zerolog.Nop(),
		now:    time.Now,
		newID:  NewID,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := Execute(ctx, db, "set busy timeout", "PRAGMA busy_timeout = "+strconv.Itoa(busyTimeoutMillis)); err != nil {
		db.Close()
		return nil, err
	}

	applied, err := migrations.RunMigrations(ctx, db)
	if err != nil {
		db.Close()
		return nil, apperrors.NewDatabaseError("run migrations", err)
	}
	if applied > 0 {
		r.logger.Info().Int("applied", applied).Str("path", dbPath).Msg("database migrated")
	}

	if err := r.ensureUser(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return r, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) timestamp() string {
	return FormatTimeForDB(r.now())
}

func (r *Repository) ensureUser(ctx context.Context, q Querier) error {
	var count int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return HandleDatabaseError("count users", err)
	}
	if count > 0 {
		return nil
	}
	return Execute(ctx, q, "create user",
		"INSERT INTO users (id, name, email, created_at) VALUES (?, ?, '', ?)",
		r.newID(), defaultUserName, r.timestamp())
}

// withTx runs fn in a transaction, rolling back on error.
func (r *Repository) withTx(ctx context.Context, operation string, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return HandleDatabaseError("begin "+operation, err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Warn().Err(rbErr).Str("operation", operation).Msg("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return HandleDatabaseError("commit "+operation, err)
	}
	return nil
}

// Init returns everything the client needs in one payload.
func (r *Repository) Init(ctx context.Context) (*remote.InitPayload, error) {
	payload := &remote.InitPayload{}

	user, err := r.user(ctx, r.db)
	if err != nil && !apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
		return nil, err
	}
	payload.User = user

	if payload.Categories, err = QueryMultiple(ctx, r.db,
		"SELECT "+categoryColumns+" FROM categories ORDER BY rowid", ScanCategory, "categories"); err != nil {
		return nil, err
	}
	if payload.Instruments, err = QueryMultiple(ctx, r.db,
		"SELECT "+instrumentColumns+" FROM instruments ORDER BY rowid", ScanInstrument, "instruments"); err != nil {
		return nil, err
	}
	if payload.Artists, err = QueryMultiple(ctx, r.db,
		"SELECT "+artistColumns+" FROM artists ORDER BY rowid", ScanArtist, "artists"); err != nil {
		return nil, err
	}
	if payload.Library, err = QueryMultiple(ctx, r.db,
		"SELECT "+libraryColumns+" FROM library_items ORDER BY created_at DESC", ScanLibraryItem, "library items"); err != nil {
		return nil, err
	}

	if payload.Sessions, err = r.sessions(ctx, r.db,
		"WHERE status = ? ORDER BY date DESC", statusCompleted); err != nil {
		return nil, err
	}
	current, err := r.sessions(ctx, r.db,
		"WHERE status = ? ORDER BY created_at DESC LIMIT 1", statusRunning)
	if err != nil {
		return nil, err
	}
	if len(current) > 0 {
		payload.CurrentSession = &current[0]
	}

	if payload.Theme, err = r.Theme(ctx); err != nil {
		return nil, err
	}
	return payload, nil
}

func (r *Repository) user(ctx context.Context, q Querier) (*remote.UserRecord, error) {
	return QuerySingle(ctx, q, "SELECT "+userColumns+" FROM users ORDER BY rowid LIMIT 1", ScanUser, "user", "")
}

// UpdateUser overwrites the singleton profile.
func (r *Repository) UpdateUser(ctx context.Context, user remote.UserRecord) (*remote.UserRecord, error) {
	err := r.withTx(ctx, "update user", func(tx *sql.Tx) error {
		if err := r.ensureUser(ctx, tx); err != nil {
			return err
		}
		return Execute(ctx, tx, "update user",
			"UPDATE users SET name = ?, email = ?, default_instrument_id = ? WHERE rowid = (SELECT MIN(rowid) FROM users)",
			user.Name, user.Email, NullString(user.DefaultInstrumentID))
	})
	if err != nil {
		return nil, err
	}
	return r.user(ctx, r.db)
}

// sessions loads sessions matching clause together with their items.
func (r *Repository) sessions(ctx context.Context, q Querier, clause string, args ...any) ([]remote.SessionRecord, error) {
	list, err := QueryMultiple(ctx, q, "SELECT "+sessionColumns+" FROM sessions "+clause, ScanSession, "sessions", args...)
	if err != nil || len(list) == 0 {
		return list, err
	}

	index := make(map[string]int, len(list))
	ids := make([]any, len(list))
	for i, s := range list {
		index[s.ID] = i
		ids[i] = s.ID
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := QueryMultiple(ctx, q,
		"SELECT session_id, "+sessionItemColumns+" FROM session_items WHERE session_id IN ("+placeholders+") ORDER BY rowid",
		scanSessionItemRow, "session items", ids...)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		i := index[row.SessionID]
		list[i].Items = append(list[i].Items, row.Item)
	}
	return list, nil
}

func (r *Repository) session(ctx context.Context, q Querier, id string) (*remote.SessionRecord, error) {
	list, err := r.sessions(ctx, q, "WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, apperrors.NewNotFoundError("session", id)
	}
	return &list[0], nil
}

// upsertSession writes rec and replaces its items. Missing ids are assigned.
func (r *Repository) upsertSession(ctx context.Context, tx *sql.Tx, rec *remote.SessionRecord, defaultStatus string) error {
	if rec.ID == "" {
		rec.ID = r.newID()
	}
	if rec.Status == "" {
		rec.Status = defaultStatus
	}
	if rec.Date == "" {
		rec.Date = r.timestamp()
	}

	err := Execute(ctx, tx, "save session", `
	INSERT INTO sessions (id, instrument_id, status, date, start_time, end_time, total_time, notes, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		instrument_id = excluded.instrument_id,
		status = excluded.status,
		date = excluded.date,
		start_time = excluded.start_time,
		end_time = excluded.end_time,
		total_time = excluded.total_time,
		notes = excluded.notes`,
		rec.ID, NullString(rec.InstrumentID), rec.Status, rec.Date, int64(rec.StartTime),
		NullInt64(rec.EndTime), int64(rec.TotalTime), rec.Notes, r.timestamp())
	if err != nil {
		return err
	}
	return r.replaceItems(ctx, tx, rec)
}

func (r *Repository) replaceItems(ctx context.Context, tx *sql.Tx, rec *remote.SessionRecord) error {
	if err := Execute(ctx, tx, "clear session items", "DELETE FROM session_items WHERE session_id = ?", rec.ID); err != nil {
		return err
	}
	for i := range rec.Items {
		item := &rec.Items[i]
		if item.ID == "" {
			item.ID = r.newID()
		}
		// Item ids are unique across sessions; a reused id moves the row.
		err := Execute(ctx, tx, "save session item", `
		INSERT OR REPLACE INTO session_items (id, session_id, library_item_id, name, category_id, time_spent, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.ID, rec.ID, NullString(item.LibraryItemID), item.Name, NullString(item.CategoryID),
			int64(item.TimeSpent), NullInt64(item.StartedAt))
		if err != nil {
			return err
		}
	}
	return nil
}

// SaveCurrentSession upserts the running session and points the current
// slot at it.
func (r *Repository) SaveCurrentSession(ctx context.Context, session remote.SessionRecord) (*remote.SessionRecord, error) {
	rec := session
	rec.Items = append([]remote.SessionItemRecord(nil), session.Items...)
	err := r.withTx(ctx, "save current session", func(tx *sql.Tx) error {
		if err := r.upsertSession(ctx, tx, &rec, statusRunning); err != nil {
			return err
		}
		return r.setSetting(ctx, tx, settingCurrent, rec.ID)
	})
	if err != nil {
		return nil, err
	}
	return r.session(ctx, r.db, rec.ID)
}

// DeleteCurrentSession clears the current slot. The session row is removed
// only while it is still running; a finalized session stays in history.
func (r *Repository) DeleteCurrentSession(ctx context.Context) error {
	return r.withTx(ctx, "clear current session", func(tx *sql.Tx) error {
		id, ok, err := r.setting(ctx, tx, settingCurrent)
		if err != nil {
			return err
		}
		if ok && id != "" {
			var status sql.NullString
			err := tx.QueryRowContext(ctx, "SELECT status FROM sessions WHERE id = ?", id).Scan(&status)
			switch {
			case errors.Is(err, sql.ErrNoRows):
			case err != nil:
				return HandleDatabaseError("read current session", err)
			case stringOr(status, statusRunning) == statusRunning:
				if err := r.deleteSession(ctx, tx, id); err != nil {
					return err
				}
			}
		}
		return Execute(ctx, tx, "clear current session", "DELETE FROM settings WHERE key = ?", settingCurrent)
	})
}

func (r *Repository) deleteSession(ctx context.Context, q Querier, id string) error {
	if err := Execute(ctx, q, "delete session items", "DELETE FROM session_items WHERE session_id = ?", id); err != nil {
		return err
	}
	return Execute(ctx, q, "delete session", "DELETE FROM sessions WHERE id = ?", id)
}

func (r *Repository) setting(ctx context.Context, q Querier, key string) (string, bool, error) {
	var value sql.NullString
	err := q.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, HandleDatabaseError("read setting", err)
	}
	return value.String, value.Valid, nil
}

func (r *Repository) setSetting(ctx context.Context, q Querier, key, value string) error {
	return Execute(ctx, q, "write setting",
		"INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value)
}

// Theme returns the stored theme, dark when unset.
func (r *Repository) Theme(ctx context.Context) (string, error) {
	theme, ok, err := r.setting(ctx, r.db, settingTheme)
	if err != nil {
		return "", err
	}
	if !ok || theme == "" {
		return defaultTheme, nil
	}
	return theme, nil
}

func (r *Repository) SetTheme(ctx context.Context, theme string) error {
	return r.setSetting(ctx, r.db, settingTheme, theme)
}

// exportTables lists every table in dump order.
var exportTables = []string{
	"users", "categories", "instruments", "artists",
	"library_items", "sessions", "session_items", "settings",
}

// importColumns whitelists the columns accepted per table on import.
var importColumns = map[string][]string{
	"users":         {"id", "name", "email", "avatar", "default_instrument_id", "created_at"},
	"categories":    {"id", "name", "type", "icon", "color"},
	"instruments":   {"id", "name", "icon"},
	"artists":       {"id", "name"},
	"library_items": {"id", "name", "category_id", "artist_id", "star_rating", "notes", "created_at"},
	"sessions":      {"id", "instrument_id", "status", "date", "start_time", "end_time", "total_time", "notes", "created_at"},
	"session_items": {"id", "session_id", "library_item_id", "name", "category_id", "time_spent", "started_at"},
	"settings":      {"key", "value"},
}

// Export dumps every table as rows of column → value.
func (r *Repository) Export(ctx context.Context) (remote.Export, error) {
	out := make(remote.Export, len(exportTables))
	for _, table := range exportTables {
		rows, err := r.dumpTable(ctx, table)
		if err != nil {
			return nil, err
		}
		out[table] = rows
	}
	return out, nil
}

func (r *Repository) dumpTable(ctx context.Context, table string) ([]map[string]any, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT * FROM "+table+" ORDER BY rowid")
	if err != nil {
		return nil, HandleDatabaseError("export "+table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, HandleDatabaseError("export "+table, err)
	}

	result := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, HandleDatabaseError("export "+table, err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				values[i] = string(b)
			}
			row[col] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, HandleDatabaseError("export "+table, err)
	}
	return result, nil
}

// Import replaces the contents of every table present in data. Tables the
// dump omits are left alone; unknown tables and columns are ignored.
func (r *Repository) Import(ctx context.Context, data remote.Export) error {
	if len(data) == 0 {
		return apperrors.NewValidationError("import data is empty", nil)
	}

	err := r.withTx(ctx, "import", func(tx *sql.Tx) error {
		for _, table := range exportTables {
			rows, ok := data[table]
			if !ok {
				continue
			}
			if err := Execute(ctx, tx, "import "+table, "DELETE FROM "+table); err != nil {
				return err
			}
			for _, row := range rows {
				if err := r.importRow(ctx, tx, table, row); err != nil {
					return err
				}
			}
		}
		return r.ensureUser(ctx, tx)
	})
	if err != nil {
		return err
	}
	r.logger.Info().Int("tables", len(data)).Msg("data imported")
	return nil
}

func (r *Repository) importRow(ctx context.Context, tx *sql.Tx, table string, row map[string]any) error {
	var columns []string
	var args []any
	for _, col := range importColumns[table] {
		if v, ok := row[col]; ok && v != nil {
			columns = append(columns, col)
			args = append(args, v)
		}
	}
	if table != "settings" && !containsString(columns, "id") {
		columns = append(columns, "id")
		args = append(args, r.newID())
	}
	if (table == "users" || table == "library_items" || table == "sessions") && !containsString(columns, "created_at") {
		columns = append(columns, "created_at")
		args = append(args, r.timestamp())
	}
	if len(columns) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",")
	query := "INSERT OR REPLACE INTO " + table + " (" + strings.Join(columns, ", ") + ") VALUES (" + placeholders + ")"
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewValidationError("invalid "+table+" row in import", err)
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Reset wipes all data. The profile name, email and theme survive; the
// default instrument is cleared because every instrument is gone.
func (r *Repository) Reset(ctx context.Context) error {
	theme, err := r.Theme(ctx)
	if err != nil {
		return err
	}
	user, err := r.user(ctx, r.db)
	if err != nil && !apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
		return err
	}

	err = r.withTx(ctx, "reset", func(tx *sql.Tx) error {
		for i := len(exportTables) - 1; i >= 0; i-- {
			if err := Execute(ctx, tx, "reset "+exportTables[i], "DELETE FROM "+exportTables[i]); err != nil {
				return err
			}
		}
		name, email := defaultUserName, ""
		if user != nil {
			name, email = user.Name, user.Email
		}
		if err := Execute(ctx, tx, "restore user",
			"INSERT INTO users (id, name, email, created_at) VALUES (?, ?, ?, ?)",
			r.newID(), name, email, r.timestamp()); err != nil {
			return err
		}
		return r.setSetting(ctx, tx, settingTheme, theme)
	})
	if err != nil {
		return err
	}
	r.logger.Info().Msg("data reset")
	return nil
}
