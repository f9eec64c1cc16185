package cli

import (
	"strconv"
	"strings"

	"fretlog/internal/domain"
	apperrors "fretlog/internal/errors"
)

// resolve finds the entity a user typed: an exact id, a case-insensitive
// name, or a unique name prefix.
func resolve[T any](kind, ref string, items []T, id func(T) string, name func(T) string) (T, error) {
	var zero T
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return zero, apperrors.NewInvalidInputError(kind, ref, kind+" is required")
	}
	for _, item := range items {
		if id(item) == ref {
			return item, nil
		}
	}
	for _, item := range items {
		if strings.EqualFold(name(item), ref) {
			return item, nil
		}
	}

	var matches []T
	lower := strings.ToLower(ref)
	for _, item := range items {
		if strings.HasPrefix(strings.ToLower(name(item)), lower) {
			matches = append(matches, item)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return zero, apperrors.NewNotFoundError(kind, ref)
	default:
		return zero, apperrors.NewInvalidInputError(kind, ref, "matches more than one "+kind+", be more specific")
	}
}

func (a *App) resolveLibraryItem(ref string) (domain.LibraryItem, error) {
	return resolve("library item", ref, a.store.Library(),
		func(l domain.LibraryItem) string { return l.ID },
		func(l domain.LibraryItem) string { return l.Name })
}

func (a *App) resolveCategory(ref string) (domain.Category, error) {
	return resolve("category", ref, a.store.Categories(),
		func(c domain.Category) string { return c.ID },
		func(c domain.Category) string { return c.Name })
}

func (a *App) resolveInstrument(ref string) (domain.Instrument, error) {
	return resolve("instrument", ref, a.store.Instruments(),
		func(i domain.Instrument) string { return i.ID },
		func(i domain.Instrument) string { return i.Name })
}

func (a *App) resolveArtist(ref string) (domain.Artist, error) {
	return resolve("artist", ref, a.store.Artists(),
		func(x domain.Artist) string { return x.ID },
		func(x domain.Artist) string { return x.Name })
}

// resolveSessionItem accepts a 1-based position in the current session
// besides the usual id and name forms.
func (a *App) resolveSessionItem(ref string) (domain.SessionItem, error) {
	session, ok := a.store.CurrentSession()
	if !ok {
		return domain.SessionItem{}, apperrors.NewNoCurrentSessionError()
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(session.Items) {
			return domain.SessionItem{}, apperrors.NewNotFoundError("session item", ref)
		}
		return session.Items[n-1], nil
	}
	return resolve("session item", ref, session.Items,
		func(i domain.SessionItem) string { return i.ID },
		func(i domain.SessionItem) string { return i.Name })
}

// resolveSession finds a completed session by exact id, 1-based position
// in the history list or unique id prefix.
func (a *App) resolveSession(ref string) (domain.Session, error) {
	ref = strings.TrimSpace(ref)
	if session, ok := a.store.Session(ref); ok {
		return session, nil
	}
	sessions := a.store.Sessions()
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(sessions) {
			return domain.Session{}, apperrors.NewNotFoundError("session", ref)
		}
		return sessions[n-1], nil
	}
	return resolve("session", ref, sessions,
		func(s domain.Session) string { return s.ID },
		func(s domain.Session) string { return s.ID })
}
