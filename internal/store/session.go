package store

import (
	"context"
	"time"

	"fretlog/internal/domain"
	apperrors "fretlog/internal/errors"
)

// StartNewSession creates a running session for the instrument, falling
// back to the user's default instrument when instrumentID is empty.
func (s *Store) StartNewSession(ctx context.Context, instrumentID string) (domain.Session, error) {
	if _, busy := s.CurrentSession(); busy {
		return domain.Session{}, apperrors.NewConflictError("a practice session is already in progress")
	}
	if instrumentID == "" {
		instrumentID = s.User().DefaultInstrumentID
	}
	if instrumentID != "" {
		if _, ok := s.Instrument(instrumentID); !ok {
			return domain.Session{}, apperrors.NewNotFoundError("instrument", instrumentID)
		}
	}

	session := domain.NewSession(s.newID(), instrumentID, s.now())
	return s.SaveCurrentSession(ctx, session)
}

// SaveCurrentSession replaces the running session remotely and adopts the
// server's copy locally.
func (s *Store) SaveCurrentSession(ctx context.Context, session domain.Session) (domain.Session, error) {
	if err := s.validator.ValidateNotes(session.Notes); err != nil {
		return domain.Session{}, invalid(err)
	}
	rec, err := s.remote.SaveCurrentSession(ctx, s.mapper.Session.ToRemote(session))
	if err != nil {
		return domain.Session{}, s.remoteFailure("save current session", err)
	}
	saved := s.mapper.Session.FromRemote(*rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &saved
	s.revision++
	s.persistCurrent(ctx)
	return saved.Clone(), nil
}

// mutateCurrent applies fn to a copy of the running session and saves it.
func (s *Store) mutateCurrent(ctx context.Context, fn func(*domain.Session) error) (domain.Session, error) {
	working, ok := s.CurrentSession()
	if !ok {
		return domain.Session{}, apperrors.NewNoCurrentSessionError()
	}
	if err := fn(&working); err != nil {
		return domain.Session{}, err
	}
	return s.SaveCurrentSession(ctx, working)
}

// AddItemToSession appends a library item to the running session.
func (s *Store) AddItemToSession(ctx context.Context, libraryItemID string) (domain.Session, error) {
	item, ok := s.LibraryItem(libraryItemID)
	if !ok {
		return domain.Session{}, apperrors.NewNotFoundError("library item", libraryItemID)
	}
	return s.mutateCurrent(ctx, func(session *domain.Session) error {
		session.AddItem(domain.NewSessionItem(s.newID(), item, s.now()))
		return nil
	})
}

func (s *Store) RemoveItemFromSession(ctx context.Context, itemID string) (domain.Session, error) {
	return s.mutateCurrent(ctx, func(session *domain.Session) error {
		if !session.RemoveItem(itemID) {
			return apperrors.NewNotFoundError("session item", itemID)
		}
		return nil
	})
}

// UpdateSessionItemTime sets the accumulated time of one session item.
func (s *Store) UpdateSessionItemTime(ctx context.Context, itemID string, spent time.Duration) (domain.Session, error) {
	return s.mutateCurrent(ctx, func(session *domain.Session) error {
		if !session.SetItemTime(itemID, spent) {
			return apperrors.NewNotFoundError("session item", itemID)
		}
		return nil
	})
}

func (s *Store) UpdateCurrentSessionNotes(ctx context.Context, notes string) (domain.Session, error) {
	return s.mutateCurrent(ctx, func(session *domain.Session) error {
		session.Notes = notes
		return nil
	})
}

// EndCurrentSession completes the running session and moves it into
// history. It returns nil when no session is running. If the remote
// current-session slot cannot be cleared afterwards the failure is logged
// and the slot is cleared locally anyway.
func (s *Store) EndCurrentSession(ctx context.Context, notes string) (*domain.Session, error) {
	working, ok := s.CurrentSession()
	if !ok {
		return nil, nil
	}
	if err := s.validator.ValidateNotes(notes); err != nil {
		return nil, invalid(err)
	}
	working.Complete(s.now(), notes)

	rec, err := s.remote.Sessions().Create(ctx, s.mapper.Session.ToRemote(working))
	if err != nil {
		return nil, s.remoteFailure("complete session", err)
	}
	done := s.mapper.Session.FromRemote(*rec)

	s.mu.Lock()
	s.sessions.upsert(done)
	s.revision++
	s.persist(ctx, s.sessions.key, s.sessions.items)
	s.mu.Unlock()

	if err := s.remote.DeleteCurrentSession(ctx); err != nil {
		s.logger.Warn().Err(err).Str("session", done.ID).Msg("current session not cleared remotely")
	}
	s.clearCurrentLocal(ctx)

	s.logger.Info().
		Str("session", done.ID).
		Dur("total", done.TotalTime).
		Int("items", len(done.Items)).
		Msg("session completed")
	return &done, nil
}

// ClearCurrentSession discards the running session without recording it.
func (s *Store) ClearCurrentSession(ctx context.Context) error {
	if err := s.remote.DeleteCurrentSession(ctx); err != nil {
		return s.remoteFailure("clear current session", err)
	}
	s.clearCurrentLocal(ctx)
	return nil
}

// CancelCurrentSession abandons the running session.
func (s *Store) CancelCurrentSession(ctx context.Context) error {
	current, ok := s.CurrentSession()
	if !ok {
		return nil
	}
	if err := s.ClearCurrentSession(ctx); err != nil {
		return err
	}
	s.logger.Info().Str("session", current.ID).Msg("session cancelled")
	return nil
}

func (s *Store) clearCurrentLocal(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.revision++
	s.persistCurrent(ctx)
}
