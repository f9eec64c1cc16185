// Package store is the single source of truth for FretLog data on the
// client. Reads are served from memory; every write goes to the remote
// store first and is then applied to memory and the local snapshot.
package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"fretlog/internal/domain"
	apperrors "fretlog/internal/errors"
	"fretlog/internal/remote"
	"fretlog/internal/snapshot"
	"fretlog/internal/validation"
)

// DefaultTheme is used when neither the snapshot nor the remote has one.
const DefaultTheme = "dark"

const themeWriteTimeout = 10 * time.Second

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger.With().Str("component", "store").Logger() }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the generator used for client-side ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithThemeSink receives the theme whenever it is applied.
func WithThemeSink(apply func(theme string)) Option {
	return func(s *Store) { s.applyTheme = apply }
}

// Store caches every FretLog collection and mediates all writes.
type Store struct {
	remote     remote.Remote
	snap       *snapshot.Store
	mapper     *domain.Mapper
	validator  *validation.Validator
	logger     zerolog.Logger
	now        func() time.Time
	newID      func() string
	applyTheme func(theme string)

	initGroup   singleflight.Group
	artistGroup singleflight.Group
	background  sync.WaitGroup

	mu          sync.RWMutex
	initialized bool
	revision    uint64
	user        domain.User
	categories  collection[domain.Category]
	instruments collection[domain.Instrument]
	artists     collection[domain.Artist]
	library     collection[domain.LibraryItem]
	sessions    collection[domain.Session]
	current     *domain.Session
	theme       string
}

// New builds a Store and synchronously hydrates it from the snapshot,
// applying the cached theme, before any network activity.
func New(r remote.Remote, snap *snapshot.Store, opts ...Option) *Store {
	s := &Store{
		remote:      r,
		snap:        snap,
		mapper:      domain.NewMapper(),
		validator:   validation.NewValidator(),
		logger:      zerolog.Nop(),
		now:         time.Now,
		newID:       uuid.NewString,
		user:        domain.User{Name: domain.DefaultUserName},
		categories:  newCollection[domain.Category](snapshot.KeyCategories, false),
		instruments: newCollection[domain.Instrument](snapshot.KeyInstruments, false),
		artists:     newCollection[domain.Artist](snapshot.KeyArtists, false),
		library:     newCollection[domain.LibraryItem](snapshot.KeyLibrary, true),
		sessions:    newCollection[domain.Session](snapshot.KeySessions, true),
		theme:       DefaultTheme,
	}
	s.sessions.clone = domain.Session.Clone
	for _, opt := range opts {
		opt(s)
	}

	s.hydrate(context.Background())
	return s
}

func (s *Store) hydrate(ctx context.Context) {
	if user, ok := snapshot.Load[domain.User](ctx, s.snap, snapshot.KeyUser); ok {
		s.user = user
	}
	if items, ok := snapshot.Load[[]domain.Category](ctx, s.snap, s.categories.key); ok {
		s.categories.set(items)
	}
	if items, ok := snapshot.Load[[]domain.Instrument](ctx, s.snap, s.instruments.key); ok {
		s.instruments.set(items)
	}
	if items, ok := snapshot.Load[[]domain.Artist](ctx, s.snap, s.artists.key); ok {
		s.artists.set(items)
	}
	if items, ok := snapshot.Load[[]domain.LibraryItem](ctx, s.snap, s.library.key); ok {
		s.library.set(items)
	}
	if items, ok := snapshot.Load[[]domain.Session](ctx, s.snap, s.sessions.key); ok {
		s.sessions.set(items)
	}
	if current, ok := snapshot.Load[domain.Session](ctx, s.snap, snapshot.KeyCurrentSession); ok && current.ID != "" {
		s.current = &current
	}
	if theme, ok := snapshot.Load[string](ctx, s.snap, snapshot.KeyTheme); ok && theme != "" {
		s.theme = theme
		s.emitTheme(theme)
	}

	s.logger.Debug().
		Int("categories", s.categories.len()).
		Int("library", s.library.len()).
		Int("sessions", s.sessions.len()).
		Bool("current_session", s.current != nil).
		Msg("hydrated from snapshot")
}

func (s *Store) emitTheme(theme string) {
	if s.applyTheme != nil {
		s.applyTheme(theme)
	}
}

// persist writes one snapshot entry. Local cache failures are logged and
// absorbed; the in-memory state stays authoritative for this process.
// Callers hold s.mu so snapshot writes follow memory order.
func (s *Store) persist(ctx context.Context, key snapshot.Key, value any) {
	if err := s.snap.Save(ctx, key, value); err != nil {
		s.logger.Warn().Err(err).Str("key", string(key)).Msg("snapshot write failed")
	}
}

func (s *Store) persistCurrent(ctx context.Context) {
	if s.current == nil {
		if err := s.snap.Delete(ctx, snapshot.KeyCurrentSession); err != nil {
			s.logger.Warn().Err(err).Msg("snapshot delete failed")
		}
		return
	}
	s.persist(ctx, snapshot.KeyCurrentSession, s.current)
}

func (s *Store) persistAll(ctx context.Context) {
	s.persist(ctx, snapshot.KeyUser, s.user)
	s.persist(ctx, s.categories.key, s.categories.items)
	s.persist(ctx, s.instruments.key, s.instruments.items)
	s.persist(ctx, s.artists.key, s.artists.items)
	s.persist(ctx, s.library.key, s.library.items)
	s.persist(ctx, s.sessions.key, s.sessions.items)
	s.persistCurrent(ctx)
	s.persist(ctx, snapshot.KeyTheme, s.theme)
}

// remoteFailure wraps a failed remote call. User-facing errors raised by
// an embedded backend (not found, validation) pass through unchanged.
func (s *Store) remoteFailure(op string, err error) error {
	if appErr, ok := apperrors.AsAppError(err); ok && !apperrors.ShouldLogError(appErr) {
		return appErr
	}
	s.logger.Warn().Err(err).Str("op", op).Msg("remote write failed")
	return apperrors.NewRemoteError(op, err)
}

func invalid(err error) error {
	var ve *validation.ValidationError
	if errors.As(err, &ve) {
		return apperrors.NewValidationError(ve.GetUserFriendlyMessage(), ve)
	}
	return apperrors.NewValidationError(err.Error(), err)
}

// Initialized reports whether a bulk init has succeeded.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Revision increases on every change to cached state.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// User returns the cached profile.
func (s *Store) User() domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Theme returns the stored theme name.
func (s *Store) Theme() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// Categories returns a copy of the categories in stored order.
func (s *Store) Categories() []domain.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categories.list()
}

// Category looks a category up by id.
func (s *Store) Category(id string) (domain.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categories.find(id)
}

// Instruments returns a copy of the instruments in stored order.
func (s *Store) Instruments() []domain.Instrument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instruments.list()
}

// Instrument looks an instrument up by id.
func (s *Store) Instrument(id string) (domain.Instrument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instruments.find(id)
}

// Artists returns a copy of the artists in stored order.
func (s *Store) Artists() []domain.Artist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artists.list()
}

// Artist looks an artist up by id.
func (s *Store) Artist(id string) (domain.Artist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artists.find(id)
}

// FindArtistByName looks an artist up ignoring case and surrounding space.
func (s *Store) FindArtistByName(name string) (domain.Artist, bool) {
	name = strings.TrimSpace(name)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.artists.items {
		if a.SameName(name) {
			return a, true
		}
	}
	return domain.Artist{}, false
}

// Library returns library items, newest first.
func (s *Store) Library() []domain.LibraryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.library.list()
}

// LibraryItem looks a library item up by id.
func (s *Store) LibraryItem(id string) (domain.LibraryItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.library.find(id)
}

// Sessions returns completed sessions, most recently added first.
func (s *Store) Sessions() []domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions.list()
}

// Session looks a completed session up by id.
func (s *Store) Session(id string) (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions.find(id)
}

// CurrentSession returns a copy of the running session, if any.
func (s *Store) CurrentSession() (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.Session{}, false
	}
	return s.current.Clone(), true
}

// Close waits for detached remote writes to finish.
func (s *Store) Close() {
	s.background.Wait()
}
