package store

import (
	"context"
	"time"

	"fretlog/internal/domain"
	apperrors "fretlog/internal/errors"
)

// initTimeout bounds a shared load, which outlives any single caller.
const initTimeout = 30 * time.Second

// Init performs the bulk load from the remote store. Concurrent callers
// share one in-flight load, and once a load succeeds later calls return
// immediately. On failure the snapshot view stays in place, Initialized
// stays false, and the next call retries. A caller whose ctx ends stops
// waiting but does not cancel the load for the others.
func (s *Store) Init(ctx context.Context) error {
	if s.Initialized() {
		return nil
	}
	flight := s.initGroup.DoChan("init", func() (any, error) {
		if s.Initialized() {
			return nil, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), initTimeout)
		defer cancel()
		return nil, s.initialize(loadCtx)
	})
	select {
	case res := <-flight:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reload discards the initialized flag and loads everything again.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	s.initialized = false
	s.mu.Unlock()
	return s.Init(ctx)
}

func (s *Store) initialize(ctx context.Context) error {
	payload, err := s.remote.Init(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("initial load failed, serving snapshot")
		return apperrors.NewRemoteError("initialize", err)
	}

	snap := s.mapper.FromInit(payload)

	seeded := false
	if len(snap.Categories) == 0 {
		snap.Categories = s.seedCategories(ctx)
	}
	if len(snap.Instruments) == 0 {
		snap.Instruments = s.seedInstruments(ctx)
		seeded = len(snap.Instruments) > 0
	}
	// A reset leaves the profile pointing at an instrument that no longer exists.
	if seeded && !hasInstrument(snap.Instruments, snap.User.DefaultInstrumentID) {
		snap.User = s.seedDefaultInstrument(ctx, snap.User, snap.Instruments[0].ID)
	}
	if snap.Theme == "" {
		snap.Theme = DefaultTheme
	}

	s.mu.Lock()
	s.user = snap.User
	s.categories.set(snap.Categories)
	s.instruments.set(snap.Instruments)
	s.artists.set(snap.Artists)
	s.library.set(snap.Library)
	s.sessions.set(snap.Sessions)
	s.current = snap.CurrentSession
	themeChanged := s.theme != snap.Theme
	s.theme = snap.Theme
	s.initialized = true
	s.revision++
	s.persistAll(ctx)
	s.mu.Unlock()

	if themeChanged {
		s.emitTheme(snap.Theme)
	}

	s.logger.Info().
		Int("categories", len(snap.Categories)).
		Int("instruments", len(snap.Instruments)).
		Int("library", len(snap.Library)).
		Int("sessions", len(snap.Sessions)).
		Bool("current_session", snap.CurrentSession != nil).
		Msg("store initialized")
	return nil
}

// seedCategories creates the default categories in order. A failed
// creation is logged and skipped.
func (s *Store) seedCategories(ctx context.Context) []domain.Category {
	api := s.remote.Categories()
	created := make([]domain.Category, 0, len(domain.DefaultCategories()))
	for _, c := range domain.DefaultCategories() {
		rec, err := api.Create(ctx, s.mapper.Category.ToRemote(c))
		if err != nil {
			s.logger.Warn().Err(err).Str("category", c.Name).Msg("seeding category failed")
			continue
		}
		created = append(created, s.mapper.Category.FromRemote(*rec))
	}
	return created
}

func (s *Store) seedInstruments(ctx context.Context) []domain.Instrument {
	api := s.remote.Instruments()
	created := make([]domain.Instrument, 0, len(domain.DefaultInstruments()))
	for _, i := range domain.DefaultInstruments() {
		rec, err := api.Create(ctx, s.mapper.Instrument.ToRemote(i))
		if err != nil {
			s.logger.Warn().Err(err).Str("instrument", i.Name).Msg("seeding instrument failed")
			continue
		}
		created = append(created, s.mapper.Instrument.FromRemote(*rec))
	}
	return created
}

func hasInstrument(instruments []domain.Instrument, id string) bool {
	for _, i := range instruments {
		if i.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) seedDefaultInstrument(ctx context.Context, user domain.User, instrumentID string) domain.User {
	previous := user.DefaultInstrumentID
	user.DefaultInstrumentID = instrumentID
	rec, err := s.remote.UpdateUser(ctx, s.mapper.User.ToRemote(user))
	if err != nil {
		s.logger.Warn().Err(err).Msg("setting default instrument failed")
		user.DefaultInstrumentID = previous
		return user
	}
	return s.mapper.User.FromRemote(*rec)
}
