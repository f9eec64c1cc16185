package domain

import (
	"strings"

	"fretlog/internal/remote"
)

// mapSlice applies fn to every element. A nil input yields an empty slice.
func mapSlice[S, T any](in []S, fn func(S) T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}

// UserMapper handles conversion between domain and remote User models.
type UserMapper struct{}

func (m *UserMapper) FromRemote(r remote.UserRecord) User {
	return User{
		Name:                strings.TrimSpace(r.Name),
		Email:               r.Email,
		DefaultInstrumentID: r.DefaultInstrumentID,
	}
}

func (m *UserMapper) ToRemote(u User) remote.UserRecord {
	return remote.UserRecord{
		Name:                u.Name,
		Email:               u.Email,
		DefaultInstrumentID: u.DefaultInstrumentID,
	}
}

// InstrumentMapper handles conversion between domain and remote Instrument models.
type InstrumentMapper struct{}

func (m *InstrumentMapper) FromRemote(r remote.InstrumentRecord) Instrument {
	return Instrument{ID: r.ID, Name: r.Name, Icon: r.Icon}
}

func (m *InstrumentMapper) ToRemote(i Instrument) remote.InstrumentRecord {
	return remote.InstrumentRecord{ID: i.ID, Name: i.Name, Icon: i.Icon}
}

func (m *InstrumentMapper) FromRemoteSlice(rs []remote.InstrumentRecord) []Instrument {
	return mapSlice(rs, m.FromRemote)
}

// CategoryMapper handles conversion between domain and remote Category
// models. Unknown type names map to Other.
type CategoryMapper struct{}

func (m *CategoryMapper) FromRemote(r remote.CategoryRecord) Category {
	categoryType, ok := ParseCategoryType(r.Type)
	if !ok {
		categoryType = CategoryTypeOther
	}
	return Category{ID: r.ID, Name: r.Name, Type: categoryType, Icon: r.Icon, Color: r.Color}
}

func (m *CategoryMapper) ToRemote(c Category) remote.CategoryRecord {
	return remote.CategoryRecord{ID: c.ID, Name: c.Name, Type: string(c.Type), Icon: c.Icon, Color: c.Color}
}

func (m *CategoryMapper) FromRemoteSlice(rs []remote.CategoryRecord) []Category {
	return mapSlice(rs, m.FromRemote)
}

// ArtistMapper handles conversion between domain and remote Artist models.
type ArtistMapper struct{}

func (m *ArtistMapper) FromRemote(r remote.ArtistRecord) Artist {
	return Artist{ID: r.ID, Name: r.Name}
}

func (m *ArtistMapper) ToRemote(a Artist) remote.ArtistRecord {
	return remote.ArtistRecord{ID: a.ID, Name: strings.TrimSpace(a.Name)}
}

func (m *ArtistMapper) FromRemoteSlice(rs []remote.ArtistRecord) []Artist {
	return mapSlice(rs, m.FromRemote)
}

// LibraryItemMapper handles conversion between domain and remote LibraryItem models.
type LibraryItemMapper struct{}

func (m *LibraryItemMapper) FromRemote(r remote.LibraryItemRecord) LibraryItem {
	item := LibraryItem{
		ID:         r.ID,
		Name:       r.Name,
		CategoryID: r.CategoryID,
		ArtistID:   r.ArtistID,
		StarRating: clampRating(r.StarRating),
		Notes:      r.Notes,
	}
	if created, err := ParseTimestamp(r.CreatedAt); err == nil {
		item.CreatedAt = created
	}
	return item
}

func (m *LibraryItemMapper) ToRemote(l LibraryItem) remote.LibraryItemRecord {
	return remote.LibraryItemRecord{
		ID:         l.ID,
		Name:       l.Name,
		CategoryID: l.CategoryID,
		ArtistID:   l.ArtistID,
		StarRating: l.StarRating,
		Notes:      l.Notes,
		CreatedAt:  FormatTimestamp(l.CreatedAt),
	}
}

func (m *LibraryItemMapper) FromRemoteSlice(rs []remote.LibraryItemRecord) []LibraryItem {
	return mapSlice(rs, m.FromRemote)
}

func clampRating(r int) int {
	switch {
	case r < 0:
		return 0
	case r > MaxStarRating:
		return MaxStarRating
	default:
		return r
	}
}

// SessionMapper handles conversion between domain and remote Session models.
type SessionMapper struct{}

// FromRemote normalizes a session. A missing or unparseable date falls
// back to the start time; a missing status is inferred from the end time.
func (m *SessionMapper) FromRemote(r remote.SessionRecord) Session {
	s := Session{
		ID:           r.ID,
		InstrumentID: r.InstrumentID,
		Status:       SessionStatus(strings.ToLower(r.Status)),
		StartTime:    FromMillis(r.StartTime),
		TotalTime:    DurationFromMillis(r.TotalTime),
		Notes:        r.Notes,
		Items:        mapSlice(r.Items, m.itemFromRemote),
	}
	if r.EndTime != nil {
		end := FromMillis(*r.EndTime)
		s.EndTime = &end
	}
	if date, err := ParseTimestamp(r.Date); err == nil {
		s.Date = date
	} else {
		s.Date = s.StartTime
	}
	if s.Status != SessionStatusRunning && s.Status != SessionStatusCompleted {
		if s.EndTime != nil {
			s.Status = SessionStatusCompleted
		} else {
			s.Status = SessionStatusRunning
		}
	}
	return s
}

func (m *SessionMapper) ToRemote(s Session) remote.SessionRecord {
	rec := remote.SessionRecord{
		ID:           s.ID,
		InstrumentID: s.InstrumentID,
		Status:       string(s.Status),
		Date:         FormatTimestamp(s.Date),
		StartTime:    ToMillis(s.StartTime),
		TotalTime:    DurationToMillis(s.TotalTime),
		Notes:        s.Notes,
		Items:        mapSlice(s.Items, m.itemToRemote),
	}
	if s.EndTime != nil {
		end := ToMillis(*s.EndTime)
		rec.EndTime = &end
	}
	return rec
}

func (m *SessionMapper) FromRemoteSlice(rs []remote.SessionRecord) []Session {
	return mapSlice(rs, m.FromRemote)
}

func (m *SessionMapper) itemFromRemote(r remote.SessionItemRecord) SessionItem {
	item := SessionItem{
		ID:            r.ID,
		LibraryItemID: r.LibraryItemID,
		Name:          r.Name,
		CategoryID:    r.CategoryID,
		TimeSpent:     DurationFromMillis(r.TimeSpent),
	}
	if r.StartedAt != nil {
		item.StartedAt = FromMillis(*r.StartedAt)
	}
	return item
}

func (m *SessionMapper) itemToRemote(i SessionItem) remote.SessionItemRecord {
	rec := remote.SessionItemRecord{
		ID:            i.ID,
		LibraryItemID: i.LibraryItemID,
		Name:          i.Name,
		CategoryID:    i.CategoryID,
		TimeSpent:     DurationToMillis(i.TimeSpent),
	}
	if !i.StartedAt.IsZero() {
		started := ToMillis(i.StartedAt)
		rec.StartedAt = &started
	}
	return rec
}

// Mapper aggregates the per-entity mappers used at the remote boundary.
type Mapper struct {
	User        *UserMapper
	Instrument  *InstrumentMapper
	Category    *CategoryMapper
	Artist      *ArtistMapper
	LibraryItem *LibraryItemMapper
	Session     *SessionMapper
}

// NewMapper creates a new Mapper instance with all sub-mappers.
func NewMapper() *Mapper {
	return &Mapper{
		User:        &UserMapper{},
		Instrument:  &InstrumentMapper{},
		Category:    &CategoryMapper{},
		Artist:      &ArtistMapper{},
		LibraryItem: &LibraryItemMapper{},
		Session:     &SessionMapper{},
	}
}

// Snapshot is the normalized content of a bulk init response.
type Snapshot struct {
	User           User
	Categories     []Category
	Instruments    []Instrument
	Artists        []Artist
	Library        []LibraryItem
	Sessions       []Session
	CurrentSession *Session
	Theme          string
}

// FromInit normalizes a bulk init payload.
func (m *Mapper) FromInit(p *remote.InitPayload) Snapshot {
	snap := Snapshot{
		User:        User{Name: DefaultUserName},
		Categories:  m.Category.FromRemoteSlice(p.Categories),
		Instruments: m.Instrument.FromRemoteSlice(p.Instruments),
		Artists:     m.Artist.FromRemoteSlice(p.Artists),
		Library:     m.LibraryItem.FromRemoteSlice(p.Library),
		Sessions:    m.Session.FromRemoteSlice(p.Sessions),
		Theme:       p.Theme,
	}
	if p.User != nil {
		snap.User = m.User.FromRemote(*p.User)
	}
	if p.CurrentSession != nil {
		current := m.Session.FromRemote(*p.CurrentSession)
		snap.CurrentSession = &current
	}
	return snap
}
