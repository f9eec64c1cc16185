package store

import (
	"context"
	"strings"

	"fretlog/internal/domain"
	apperrors "fretlog/internal/errors"
	"fretlog/internal/remote"
	"fretlog/internal/snapshot"
)

// UpdateUser saves the profile.
func (s *Store) UpdateUser(ctx context.Context, user domain.User) (domain.User, error) {
	user.Name = strings.TrimSpace(user.Name)
	if err := s.validator.ValidateUser(user); err != nil {
		return domain.User{}, invalid(err)
	}
	if user.DefaultInstrumentID != "" {
		if _, ok := s.Instrument(user.DefaultInstrumentID); !ok {
			return domain.User{}, apperrors.NewNotFoundError("instrument", user.DefaultInstrumentID)
		}
	}
	rec, err := s.remote.UpdateUser(ctx, s.mapper.User.ToRemote(user))
	if err != nil {
		return domain.User{}, s.remoteFailure("update user", err)
	}
	saved := s.mapper.User.FromRemote(*rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = saved
	s.revision++
	s.persist(ctx, snapshot.KeyUser, s.user)
	return saved, nil
}

// SetTheme applies and caches the theme immediately. The remote write runs
// detached; its failure is logged and never surfaced. Close waits for it.
func (s *Store) SetTheme(ctx context.Context, theme string) error {
	if err := s.validator.ValidateTheme(theme); err != nil {
		return invalid(err)
	}

	s.mu.Lock()
	s.theme = theme
	s.revision++
	s.persist(ctx, snapshot.KeyTheme, theme)
	s.mu.Unlock()
	s.emitTheme(theme)

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), themeWriteTimeout)
		defer cancel()
		if err := s.remote.SetTheme(bg, theme); err != nil {
			s.logger.Warn().Err(err).Str("theme", theme).Msg("theme not saved remotely")
		}
	}()
	return nil
}

// Export returns the remote store's full table dump.
func (s *Store) Export(ctx context.Context) (remote.Export, error) {
	data, err := s.remote.Export(ctx)
	if err != nil {
		return nil, s.remoteFailure("export", err)
	}
	return data, nil
}

// Import replaces all remote data and reloads.
func (s *Store) Import(ctx context.Context, data remote.Export) error {
	if err := s.remote.Import(ctx, data); err != nil {
		return s.remoteFailure("import", err)
	}
	return s.Reload(ctx)
}

// Reset wipes practice data remotely, keeping the profile and theme, and
// reloads.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.remote.Reset(ctx); err != nil {
		return s.remoteFailure("reset", err)
	}
	return s.Reload(ctx)
}
