package store

import (
	"context"
	"strings"
	"time"

	"fretlog/internal/domain"
	"fretlog/internal/remote"
)

// writeThrough sends one create or update to the remote store and applies
// the normalized response to memory and the snapshot. Nothing local
// changes when the remote call fails.
func writeThrough[T entity, R any](
	ctx context.Context,
	s *Store,
	op string,
	col *collection[T],
	call func(ctx context.Context) (*R, error),
	from func(R) T,
) (T, error) {
	var zero T
	rec, err := call(ctx)
	if err != nil {
		return zero, s.remoteFailure(op, err)
	}
	v := from(*rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	col.upsert(v)
	s.revision++
	s.persist(ctx, col.key, col.items)
	return col.copyOf(v), nil
}

func deleteThrough[T entity, R any](ctx context.Context, s *Store, op string, col *collection[T], api remote.Collection[R], id string) error {
	if err := api.Delete(ctx, id); err != nil {
		return s.remoteFailure(op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col.remove(id) {
		s.revision++
		s.persist(ctx, col.key, col.items)
	}
	return nil
}

func (s *Store) AddCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := s.validator.ValidateCategory(c); err != nil {
		return domain.Category{}, invalid(err)
	}
	api := s.remote.Categories()
	return writeThrough(ctx, s, "create category", &s.categories,
		func(ctx context.Context) (*remote.CategoryRecord, error) {
			return api.Create(ctx, s.mapper.Category.ToRemote(c))
		}, s.mapper.Category.FromRemote)
}

func (s *Store) UpdateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := s.validator.ValidateCategory(c); err != nil {
		return domain.Category{}, invalid(err)
	}
	api := s.remote.Categories()
	return writeThrough(ctx, s, "update category", &s.categories,
		func(ctx context.Context) (*remote.CategoryRecord, error) {
			return api.Update(ctx, c.ID, s.mapper.Category.ToRemote(c))
		}, s.mapper.Category.FromRemote)
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return deleteThrough(ctx, s, "delete category", &s.categories, s.remote.Categories(), id)
}

func (s *Store) AddInstrument(ctx context.Context, i domain.Instrument) (domain.Instrument, error) {
	i.Name = strings.TrimSpace(i.Name)
	if err := s.validator.ValidateInstrument(i); err != nil {
		return domain.Instrument{}, invalid(err)
	}
	api := s.remote.Instruments()
	return writeThrough(ctx, s, "create instrument", &s.instruments,
		func(ctx context.Context) (*remote.InstrumentRecord, error) {
			return api.Create(ctx, s.mapper.Instrument.ToRemote(i))
		}, s.mapper.Instrument.FromRemote)
}

func (s *Store) UpdateInstrument(ctx context.Context, i domain.Instrument) (domain.Instrument, error) {
	i.Name = strings.TrimSpace(i.Name)
	if err := s.validator.ValidateInstrument(i); err != nil {
		return domain.Instrument{}, invalid(err)
	}
	api := s.remote.Instruments()
	return writeThrough(ctx, s, "update instrument", &s.instruments,
		func(ctx context.Context) (*remote.InstrumentRecord, error) {
			return api.Update(ctx, i.ID, s.mapper.Instrument.ToRemote(i))
		}, s.mapper.Instrument.FromRemote)
}

func (s *Store) DeleteInstrument(ctx context.Context, id string) error {
	return deleteThrough(ctx, s, "delete instrument", &s.instruments, s.remote.Instruments(), id)
}

// AddArtist returns the existing artist when one with the same name is
// already known.
func (s *Store) AddArtist(ctx context.Context, name string) (domain.Artist, error) {
	return s.FindOrCreateArtist(ctx, name)
}

// FindOrCreateArtist resolves an artist by name, ignoring case. The cache
// is consulted first; concurrent calls for the same name share a single
// remote create.
func (s *Store) FindOrCreateArtist(ctx context.Context, name string) (domain.Artist, error) {
	name = strings.TrimSpace(name)
	if err := s.validator.ValidateArtistName(name); err != nil {
		return domain.Artist{}, invalid(err)
	}
	if a, ok := s.FindArtistByName(name); ok {
		return a, nil
	}

	v, err, _ := s.artistGroup.Do(strings.ToLower(name), func() (any, error) {
		if a, ok := s.FindArtistByName(name); ok {
			return a, nil
		}
		api := s.remote.Artists()
		return writeThrough(ctx, s, "create artist", &s.artists,
			func(ctx context.Context) (*remote.ArtistRecord, error) {
				return api.Create(ctx, s.mapper.Artist.ToRemote(domain.Artist{Name: name}))
			}, s.mapper.Artist.FromRemote)
	})
	if err != nil {
		return domain.Artist{}, err
	}
	return v.(domain.Artist), nil
}

func (s *Store) UpdateArtist(ctx context.Context, a domain.Artist) (domain.Artist, error) {
	a.Name = strings.TrimSpace(a.Name)
	if err := s.validator.ValidateArtistName(a.Name); err != nil {
		return domain.Artist{}, invalid(err)
	}
	api := s.remote.Artists()
	return writeThrough(ctx, s, "update artist", &s.artists,
		func(ctx context.Context) (*remote.ArtistRecord, error) {
			return api.Update(ctx, a.ID, s.mapper.Artist.ToRemote(a))
		}, s.mapper.Artist.FromRemote)
}

func (s *Store) DeleteArtist(ctx context.Context, id string) error {
	return deleteThrough(ctx, s, "delete artist", &s.artists, s.remote.Artists(), id)
}

// AddLibraryItem creates an item; new items are listed first.
func (s *Store) AddLibraryItem(ctx context.Context, l domain.LibraryItem) (domain.LibraryItem, error) {
	l.Name = strings.TrimSpace(l.Name)
	if err := s.validator.ValidateLibraryItem(l); err != nil {
		return domain.LibraryItem{}, invalid(err)
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now()
	}
	api := s.remote.Library()
	return writeThrough(ctx, s, "create library item", &s.library,
		func(ctx context.Context) (*remote.LibraryItemRecord, error) {
			return api.Create(ctx, s.mapper.LibraryItem.ToRemote(l))
		}, s.mapper.LibraryItem.FromRemote)
}

func (s *Store) UpdateLibraryItem(ctx context.Context, l domain.LibraryItem) (domain.LibraryItem, error) {
	l.Name = strings.TrimSpace(l.Name)
	if err := s.validator.ValidateLibraryItem(l); err != nil {
		return domain.LibraryItem{}, invalid(err)
	}
	api := s.remote.Library()
	return writeThrough(ctx, s, "update library item", &s.library,
		func(ctx context.Context) (*remote.LibraryItemRecord, error) {
			return api.Update(ctx, l.ID, s.mapper.LibraryItem.ToRemote(l))
		}, s.mapper.LibraryItem.FromRemote)
}

func (s *Store) DeleteLibraryItem(ctx context.Context, id string) error {
	return deleteThrough(ctx, s, "delete library item", &s.library, s.remote.Library(), id)
}

// AddSession records a finished session straight into history, newest
// first. The total is recomputed from the items.
func (s *Store) AddSession(ctx context.Context, session domain.Session) (domain.Session, error) {
	if err := s.validator.ValidateNotes(session.Notes); err != nil {
		return domain.Session{}, invalid(err)
	}
	if session.ID == "" {
		session.ID = s.newID()
	}
	session.Items = append([]domain.SessionItem(nil), session.Items...)
	for i := range session.Items {
		if session.Items[i].ID == "" {
			session.Items[i].ID = s.newID()
		}
	}
	completeRecord(&session, s.now())
	api := s.remote.Sessions()
	return writeThrough(ctx, s, "create session", &s.sessions,
		func(ctx context.Context) (*remote.SessionRecord, error) {
			return api.Create(ctx, s.mapper.Session.ToRemote(session))
		}, s.mapper.Session.FromRemote)
}

// UpdateSession edits a completed session in history.
func (s *Store) UpdateSession(ctx context.Context, session domain.Session) (domain.Session, error) {
	if err := s.validator.ValidateNotes(session.Notes); err != nil {
		return domain.Session{}, invalid(err)
	}
	completeRecord(&session, s.now())
	api := s.remote.Sessions()
	return writeThrough(ctx, s, "update session", &s.sessions,
		func(ctx context.Context) (*remote.SessionRecord, error) {
			return api.Update(ctx, session.ID, s.mapper.Session.ToRemote(session))
		}, s.mapper.Session.FromRemote)
}

// completeRecord pins a history entry to the completed state with a total
// that matches its items.
func completeRecord(session *domain.Session, now time.Time) {
	session.Status = domain.SessionStatusCompleted
	session.TotalTime = session.ItemTime()
	if session.EndTime == nil {
		end := now
		session.EndTime = &end
	}
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return deleteThrough(ctx, s, "delete session", &s.sessions, s.remote.Sessions(), id)
}
