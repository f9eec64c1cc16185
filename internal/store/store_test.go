package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fretlog/internal/domain"
	apperrors "fretlog/internal/errors"
	"fretlog/internal/remote"
	"fretlog/internal/snapshot"
)

var fixedNow = time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)

type harness struct {
	remote *fakeRemote
	snap   *snapshot.Store
	store  *Store
	themes []string
}

func newHarness(t *testing.T, prepare func(*fakeRemote, *snapshot.Store)) *harness {
	t.Helper()
	h := &harness{
		remote: newFakeRemote(),
		snap:   snapshot.New(snapshot.NewMemory(), zerolog.Nop()),
	}
	if prepare != nil {
		prepare(h.remote, h.snap)
	}
	var seq int64
	h.store = New(h.remote, h.snap,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return fmt.Sprintf("local-%d", atomic.AddInt64(&seq, 1)) }),
		WithThemeSink(func(theme string) { h.themes = append(h.themes, theme) }),
	)
	t.Cleanup(h.store.Close)
	return h
}

func initialized(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t, nil)
	require.NoError(t, h.store.Init(context.Background()))
	return h
}

func TestStore_New(t *testing.T) {
	t.Run("should hydrate from the snapshot before any network call", func(t *testing.T) {
		// Arrange
		cached := []domain.Category{{ID: "c1", Name: "Scales", Type: domain.CategoryTypeTechnique}}

		// Act
		h := newHarness(t, func(_ *fakeRemote, snap *snapshot.Store) {
			ctx := context.Background()
			require.NoError(t, snap.Save(ctx, snapshot.KeyCategories, cached))
			require.NoError(t, snap.Save(ctx, snapshot.KeyTheme, "light"))
		})

		// Assert
		assert.Equal(t, cached, h.store.Categories())
		assert.Equal(t, "light", h.store.Theme())
		assert.Equal(t, []string{"light"}, h.themes)
		assert.False(t, h.store.Initialized())
		assert.Zero(t, h.remote.Calls("init"))
	})

	t.Run("should start empty without a snapshot", func(t *testing.T) {
		h := newHarness(t, nil)

		assert.Empty(t, h.store.Categories())
		assert.Empty(t, h.store.Library())
		assert.Equal(t, domain.DefaultUserName, h.store.User().Name)
		assert.Equal(t, DefaultTheme, h.store.Theme())
		assert.Empty(t, h.themes)
		_, ok := h.store.CurrentSession()
		assert.False(t, ok)
	})
}

func TestStore_Init(t *testing.T) {
	t.Run("should seed defaults into an empty store", func(t *testing.T) {
		// Arrange
		h := newHarness(t, nil)

		// Act
		err := h.store.Init(context.Background())

		// Assert
		require.NoError(t, err)
		assert.True(t, h.store.Initialized())

		categories := h.store.Categories()
		require.Len(t, categories, len(domain.DefaultCategories()))
		for i, want := range domain.DefaultCategories() {
			assert.Equal(t, want.Name, categories[i].Name)
			assert.NotEmpty(t, categories[i].ID)
		}
		instruments := h.store.Instruments()
		require.Len(t, instruments, len(domain.DefaultInstruments()))
		assert.Equal(t, instruments[0].ID, h.store.User().DefaultInstrumentID)
		assert.Equal(t, 1, h.remote.Calls("update_user"))

		cachedCategories, ok := snapshot.Load[[]domain.Category](context.Background(), h.snap, snapshot.KeyCategories)
		require.True(t, ok)
		assert.Equal(t, categories, cachedCategories)
	})

	t.Run("should replace a default instrument that no longer exists", func(t *testing.T) {
		// Arrange
		h := newHarness(t, func(r *fakeRemote, _ *snapshot.Store) {
			r.user.DefaultInstrumentID = "deleted-instrument"
		})

		// Act
		err := h.store.Init(context.Background())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, h.store.Instruments()[0].ID, h.store.User().DefaultInstrumentID)
	})

	t.Run("should skip a default that fails to seed", func(t *testing.T) {
		h := newHarness(t, func(r *fakeRemote, _ *snapshot.Store) {
			r.failAt["create_category"] = 2
		})

		require.NoError(t, h.store.Init(context.Background()))

		categories := h.store.Categories()
		require.Len(t, categories, len(domain.DefaultCategories())-1)
		for _, c := range categories {
			assert.NotEqual(t, domain.DefaultCategories()[1].Name, c.Name)
		}
	})

	t.Run("should not seed when data already exists", func(t *testing.T) {
		h := newHarness(t, func(r *fakeRemote, _ *snapshot.Store) {
			r.categories = []remote.CategoryRecord{{ID: "c1", Name: "Songs", Type: "Song"}}
			r.instruments = []remote.InstrumentRecord{{ID: "i1", Name: "Ukulele"}}
		})

		require.NoError(t, h.store.Init(context.Background()))

		assert.Zero(t, h.remote.Calls("create_category"))
		assert.Zero(t, h.remote.Calls("create_instrument"))
		assert.Zero(t, h.remote.Calls("update_user"))
		assert.Len(t, h.store.Categories(), 1)
	})

	t.Run("should keep the snapshot view when the remote is unreachable", func(t *testing.T) {
		// Arrange
		cached := []domain.LibraryItem{{ID: "l1", Name: "Blackbird", CategoryID: "c1"}}
		h := newHarness(t, func(r *fakeRemote, snap *snapshot.Store) {
			r.fail["init"] = errBoom
			require.NoError(t, snap.Save(context.Background(), snapshot.KeyLibrary, cached))
		})

		// Act
		err := h.store.Init(context.Background())

		// Assert
		require.Error(t, err)
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeRemote))
		assert.False(t, h.store.Initialized())
		assert.Equal(t, "Blackbird", h.store.Library()[0].Name)
	})

	t.Run("should retry after a failed init", func(t *testing.T) {
		h := newHarness(t, func(r *fakeRemote, _ *snapshot.Store) {
			r.fail["init"] = errBoom
		})
		require.Error(t, h.store.Init(context.Background()))

		h.remote.FailWith("init", nil)
		require.NoError(t, h.store.Init(context.Background()))

		assert.True(t, h.store.Initialized())
		assert.Equal(t, 2, h.remote.Calls("init"))
	})

	t.Run("should share one remote load across concurrent callers", func(t *testing.T) {
		// Arrange
		gate := make(chan struct{})
		h := newHarness(t, func(r *fakeRemote, _ *snapshot.Store) {
			r.initGate = gate
		})

		// Act
		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = h.store.Init(context.Background())
			}(i)
		}
		time.Sleep(20 * time.Millisecond)
		close(gate)
		wg.Wait()

		// Assert
		for _, err := range errs {
			assert.NoError(t, err)
		}
		assert.Equal(t, 1, h.remote.Calls("init"))
		assert.Len(t, h.store.Categories(), len(domain.DefaultCategories()))
	})

	t.Run("should finish the shared load when the first caller gives up", func(t *testing.T) {
		// Arrange
		gate := make(chan struct{})
		h := newHarness(t, func(r *fakeRemote, _ *snapshot.Store) {
			r.initGate = gate
		})
		ctx, cancel := context.WithCancel(context.Background())
		first := make(chan error, 1)
		go func() { first <- h.store.Init(ctx) }()
		require.Eventually(t, func() bool { return h.remote.Calls("init") == 1 }, time.Second, time.Millisecond)

		// Act
		cancel()
		firstErr := <-first
		second := make(chan error, 1)
		go func() { second <- h.store.Init(context.Background()) }()
		time.Sleep(20 * time.Millisecond)
		close(gate)

		// Assert
		assert.ErrorIs(t, firstErr, context.Canceled)
		require.NoError(t, <-second)
		assert.True(t, h.store.Initialized())
		assert.Equal(t, 1, h.remote.Calls("init"))
	})

	t.Run("should not reload once initialized", func(t *testing.T) {
		h := initialized(t)

		require.NoError(t, h.store.Init(context.Background()))

		assert.Equal(t, 1, h.remote.Calls("init"))
	})

	t.Run("should adopt the remote theme", func(t *testing.T) {
		h := newHarness(t, func(r *fakeRemote, snap *snapshot.Store) {
			r.theme = "light"
			require.NoError(t, snap.Save(context.Background(), snapshot.KeyTheme, "dark"))
		})

		require.NoError(t, h.store.Init(context.Background()))

		assert.Equal(t, "light", h.store.Theme())
		assert.Equal(t, []string{"dark", "light"}, h.themes)
	})
}

func TestStore_Reload(t *testing.T) {
	h := initialized(t)
	h.remote.mu.Lock()
	h.remote.artists = append(h.remote.artists, remote.ArtistRecord{ID: "a9", Name: "Joni Mitchell"})
	h.remote.mu.Unlock()

	require.NoError(t, h.store.Reload(context.Background()))

	assert.Equal(t, 2, h.remote.Calls("init"))
	a, ok := h.store.Artist("a9")
	require.True(t, ok)
	assert.Equal(t, "Joni Mitchell", a.Name)
}

func TestStore_WriteThrough(t *testing.T) {
	t.Run("should prepend library items and mirror them in the snapshot", func(t *testing.T) {
		// Arrange
		h := initialized(t)
		categoryID := h.store.Categories()[0].ID
		ctx := context.Background()

		// Act
		first, err := h.store.AddLibraryItem(ctx, domain.LibraryItem{Name: "Blackbird", CategoryID: categoryID})
		require.NoError(t, err)
		second, err := h.store.AddLibraryItem(ctx, domain.LibraryItem{Name: " Wonderwall ", CategoryID: categoryID, StarRating: 4})
		require.NoError(t, err)

		// Assert
		library := h.store.Library()
		require.Len(t, library, 2)
		assert.Equal(t, second.ID, library[0].ID)
		assert.Equal(t, first.ID, library[1].ID)
		assert.Equal(t, "Wonderwall", library[0].Name)

		cached, ok := snapshot.Load[[]domain.LibraryItem](ctx, h.snap, snapshot.KeyLibrary)
		require.True(t, ok)
		require.Len(t, cached, 2)
		assert.Equal(t, library[0].ID, cached[0].ID)
		assert.Equal(t, library[1].ID, cached[1].ID)
	})

	t.Run("should append categories", func(t *testing.T) {
		h := initialized(t)

		created, err := h.store.AddCategory(context.Background(), domain.Category{Name: "Improv", Type: domain.CategoryTypeOther})

		require.NoError(t, err)
		categories := h.store.Categories()
		assert.Equal(t, created.ID, categories[len(categories)-1].ID)
	})

	t.Run("should leave memory untouched when the remote write fails", func(t *testing.T) {
		// Arrange
		h := initialized(t)
		ctx := context.Background()
		before := h.store.Instruments()
		revision := h.store.Revision()
		h.remote.FailWith("create_instrument", errBoom)

		// Act
		_, err := h.store.AddInstrument(ctx, domain.Instrument{Name: "Mandolin"})

		// Assert
		require.Error(t, err)
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeRemote))
		assert.Equal(t, before, h.store.Instruments())
		assert.Equal(t, revision, h.store.Revision())
		cached, _ := snapshot.Load[[]domain.Instrument](ctx, h.snap, snapshot.KeyInstruments)
		assert.Equal(t, before, cached)
	})

	t.Run("should reject invalid input before calling the remote", func(t *testing.T) {
		h := initialized(t)

		_, err := h.store.AddLibraryItem(context.Background(), domain.LibraryItem{Name: "   "})

		require.Error(t, err)
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
		assert.Zero(t, h.remote.Calls("create_library"))
	})

	t.Run("should update and delete in place", func(t *testing.T) {
		h := initialized(t)
		ctx := context.Background()
		c := h.store.Categories()[1]

		c.Name = "Music Theory"
		updated, err := h.store.UpdateCategory(ctx, c)
		require.NoError(t, err)
		assert.Equal(t, "Music Theory", updated.Name)
		assert.Equal(t, "Music Theory", h.store.Categories()[1].Name)

		require.NoError(t, h.store.DeleteCategory(ctx, c.ID))
		_, ok := h.store.Category(c.ID)
		assert.False(t, ok)
		assert.Len(t, h.store.Categories(), len(domain.DefaultCategories())-1)
	})

	t.Run("should bump the revision on every change", func(t *testing.T) {
		h := initialized(t)
		r0 := h.store.Revision()

		_, err := h.store.AddArtist(context.Background(), "Radiohead")
		require.NoError(t, err)

		assert.Greater(t, h.store.Revision(), r0)
	})
}

// asJSON renders v the way the snapshot stores it.
func asJSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}

func TestStore_SnapshotMirror(t *testing.T) {
	tests := []struct {
		name   string
		key    snapshot.Key
		add    func(ctx context.Context, h *harness) (string, error)
		update func(ctx context.Context, h *harness, id string) error
		delete func(ctx context.Context, h *harness, id string) error
		list   func(h *harness) any
		cached func(ctx context.Context, h *harness) (any, bool)
	}{
		{
			name: "categories",
			key:  snapshot.KeyCategories,
			add: func(ctx context.Context, h *harness) (string, error) {
				c, err := h.store.AddCategory(ctx, domain.Category{Name: "Improv", Type: domain.CategoryTypeOther})
				return c.ID, err
			},
			update: func(ctx context.Context, h *harness, id string) error {
				c, _ := h.store.Category(id)
				c.Name = "Improvisation"
				_, err := h.store.UpdateCategory(ctx, c)
				return err
			},
			delete: func(ctx context.Context, h *harness, id string) error { return h.store.DeleteCategory(ctx, id) },
			list:   func(h *harness) any { return h.store.Categories() },
			cached: func(ctx context.Context, h *harness) (any, bool) {
				return snapshot.Load[[]domain.Category](ctx, h.snap, snapshot.KeyCategories)
			},
		},
		{
			name: "instruments",
			key:  snapshot.KeyInstruments,
			add: func(ctx context.Context, h *harness) (string, error) {
				i, err := h.store.AddInstrument(ctx, domain.Instrument{Name: "Mandolin"})
				return i.ID, err
			},
			update: func(ctx context.Context, h *harness, id string) error {
				i, _ := h.store.Instrument(id)
				i.Name = "Octave Mandolin"
				_, err := h.store.UpdateInstrument(ctx, i)
				return err
			},
			delete: func(ctx context.Context, h *harness, id string) error { return h.store.DeleteInstrument(ctx, id) },
			list:   func(h *harness) any { return h.store.Instruments() },
			cached: func(ctx context.Context, h *harness) (any, bool) {
				return snapshot.Load[[]domain.Instrument](ctx, h.snap, snapshot.KeyInstruments)
			},
		},
		{
			name: "artists",
			key:  snapshot.KeyArtists,
			add: func(ctx context.Context, h *harness) (string, error) {
				a, err := h.store.AddArtist(ctx, "Radiohead")
				return a.ID, err
			},
			update: func(ctx context.Context, h *harness, id string) error {
				a, _ := h.store.Artist(id)
				a.Name = "Thom Yorke"
				_, err := h.store.UpdateArtist(ctx, a)
				return err
			},
			delete: func(ctx context.Context, h *harness, id string) error { return h.store.DeleteArtist(ctx, id) },
			list:   func(h *harness) any { return h.store.Artists() },
			cached: func(ctx context.Context, h *harness) (any, bool) {
				return snapshot.Load[[]domain.Artist](ctx, h.snap, snapshot.KeyArtists)
			},
		},
		{
			name: "library",
			key:  snapshot.KeyLibrary,
			add: func(ctx context.Context, h *harness) (string, error) {
				l, err := h.store.AddLibraryItem(ctx, domain.LibraryItem{Name: "Blackbird", CategoryID: h.store.Categories()[0].ID})
				return l.ID, err
			},
			update: func(ctx context.Context, h *harness, id string) error {
				l, _ := h.store.LibraryItem(id)
				l.StarRating = 5
				_, err := h.store.UpdateLibraryItem(ctx, l)
				return err
			},
			delete: func(ctx context.Context, h *harness, id string) error { return h.store.DeleteLibraryItem(ctx, id) },
			list:   func(h *harness) any { return h.store.Library() },
			cached: func(ctx context.Context, h *harness) (any, bool) {
				return snapshot.Load[[]domain.LibraryItem](ctx, h.snap, snapshot.KeyLibrary)
			},
		},
		{
			name: "sessions",
			key:  snapshot.KeySessions,
			add: func(ctx context.Context, h *harness) (string, error) {
				s, err := h.store.AddSession(ctx, pastSession(h, 90*time.Second))
				return s.ID, err
			},
			update: func(ctx context.Context, h *harness, id string) error {
				s, _ := h.store.Session(id)
				s.Notes = "slow and steady"
				_, err := h.store.UpdateSession(ctx, s)
				return err
			},
			delete: func(ctx context.Context, h *harness, id string) error { return h.store.DeleteSession(ctx, id) },
			list:   func(h *harness) any { return h.store.Sessions() },
			cached: func(ctx context.Context, h *harness) (any, bool) {
				return snapshot.Load[[]domain.Session](ctx, h.snap, snapshot.KeySessions)
			},
		},
	}

	for _, tt := range tests {
		t.Run("should mirror "+tt.name+" after every write", func(t *testing.T) {
			// Arrange
			h := initialized(t)
			ctx := context.Background()
			mirrored := func(step string) {
				t.Helper()
				cached, ok := tt.cached(ctx, h)
				require.True(t, ok, "%s: nothing cached under %s", step, tt.key)
				assert.JSONEq(t, asJSON(t, tt.list(h)), asJSON(t, cached), step)
			}

			// Act & Assert
			id, err := tt.add(ctx, h)
			require.NoError(t, err)
			mirrored("add")

			require.NoError(t, tt.update(ctx, h, id))
			mirrored("update")

			require.NoError(t, tt.delete(ctx, h, id))
			mirrored("delete")
		})
	}
}

// pastSession builds a finished session on the default instrument with one
// item per duration.
func pastSession(h *harness, spent ...time.Duration) domain.Session {
	start := fixedNow.Add(-time.Hour)
	session := domain.Session{
		InstrumentID: h.store.User().DefaultInstrumentID,
		Status:       domain.SessionStatusRunning,
		Date:         start,
		StartTime:    start,
		TotalTime:    time.Second,
	}
	for i, d := range spent {
		session.Items = append(session.Items, domain.SessionItem{
			ID:            fmt.Sprintf("item-%d", i+1),
			LibraryItemID: fmt.Sprintf("lib-%d", i+1),
			Name:          fmt.Sprintf("Piece %d", i+1),
			TimeSpent:     d,
		})
	}
	return session
}

func TestStore_AddSession(t *testing.T) {
	t.Run("should prepend to history and mirror it in the snapshot", func(t *testing.T) {
		// Arrange
		h := initialized(t)
		ctx := context.Background()

		// Act
		first, err := h.store.AddSession(ctx, pastSession(h, time.Minute))
		require.NoError(t, err)
		second, err := h.store.AddSession(ctx, pastSession(h, 2*time.Minute, 30*time.Second))
		require.NoError(t, err)

		// Assert
		sessions := h.store.Sessions()
		require.Len(t, sessions, 2)
		assert.Equal(t, second.ID, sessions[0].ID)
		assert.Equal(t, first.ID, sessions[1].ID)

		cached, ok := snapshot.Load[[]domain.Session](ctx, h.snap, snapshot.KeySessions)
		require.True(t, ok)
		assert.JSONEq(t, asJSON(t, sessions), asJSON(t, cached))
	})

	t.Run("should complete the record with its item total", func(t *testing.T) {
		h := initialized(t)

		added, err := h.store.AddSession(context.Background(), pastSession(h, 2*time.Minute, 30*time.Second))

		require.NoError(t, err)
		assert.Equal(t, domain.SessionStatusCompleted, added.Status)
		assert.Equal(t, 150*time.Second, added.TotalTime)
		require.NotNil(t, added.EndTime)
		assert.True(t, fixedNow.Equal(*added.EndTime))
	})

	t.Run("should leave history untouched when the remote write fails", func(t *testing.T) {
		// Arrange
		h := initialized(t)
		ctx := context.Background()
		revision := h.store.Revision()
		h.remote.FailWith("create_session", errBoom)

		// Act
		_, err := h.store.AddSession(ctx, pastSession(h, time.Minute))

		// Assert
		require.Error(t, err)
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeRemote))
		assert.Empty(t, h.store.Sessions())
		assert.Equal(t, revision, h.store.Revision())
		cached, _ := snapshot.Load[[]domain.Session](ctx, h.snap, snapshot.KeySessions)
		assert.Empty(t, cached)
	})

	t.Run("should reject notes that are too long", func(t *testing.T) {
		h := initialized(t)
		session := pastSession(h, time.Minute)
		session.Notes = strings.Repeat("n", 10_001)

		_, err := h.store.AddSession(context.Background(), session)

		require.Error(t, err)
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
		assert.Zero(t, h.remote.Calls("create_session"))
	})
}

func TestStore_UpdateSession(t *testing.T) {
	t.Run("should recompute the total and keep the session completed", func(t *testing.T) {
		// Arrange
		h := initialized(t)
		ctx := context.Background()
		added, err := h.store.AddSession(ctx, pastSession(h, time.Minute, time.Minute))
		require.NoError(t, err)
		added.Items[1].TimeSpent = 3 * time.Minute
		added.TotalTime = time.Hour
		added.Status = domain.SessionStatusRunning

		// Act
		updated, err := h.store.UpdateSession(ctx, added)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 4*time.Minute, updated.TotalTime)
		assert.Equal(t, domain.SessionStatusCompleted, updated.Status)
		stored, ok := h.store.Session(added.ID)
		require.True(t, ok)
		assert.Equal(t, 4*time.Minute, stored.TotalTime)
		assert.Equal(t, domain.SessionStatusCompleted, stored.Status)
	})
}

func TestStore_FindOrCreateArtist(t *testing.T) {
	tests := []struct {
		name    string
		lookups []string
	}{
		{name: "should reuse an exact match", lookups: []string{"Metallica", "Metallica"}},
		{name: "should match ignoring case", lookups: []string{"Metallica", "metallica", "METALLICA"}},
		{name: "should match ignoring surrounding space", lookups: []string{"Metallica", "  metallica "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			h := initialized(t)
			ctx := context.Background()

			// Act
			var ids []string
			for _, name := range tt.lookups {
				a, err := h.store.FindOrCreateArtist(ctx, name)
				require.NoError(t, err)
				ids = append(ids, a.ID)
			}

			// Assert
			for _, id := range ids {
				assert.Equal(t, ids[0], id)
			}
			assert.Len(t, h.store.Artists(), 1)
			assert.Equal(t, 1, h.remote.Calls("create_artist"))
		})
	}

	t.Run("should create once for concurrent lookups", func(t *testing.T) {
		h := initialized(t)
		names := []string{"Queen", "queen", "QUEEN", "Queen ", "qUeEn", "Queen"}

		var wg sync.WaitGroup
		ids := make([]string, len(names))
		for i, name := range names {
			wg.Add(1)
			go func(i int, name string) {
				defer wg.Done()
				a, err := h.store.FindOrCreateArtist(context.Background(), name)
				assert.NoError(t, err)
				ids[i] = a.ID
			}(i, name)
		}
		wg.Wait()

		assert.Len(t, h.store.Artists(), 1)
		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
	})

	t.Run("should replace a cached entry when the server returns a known id", func(t *testing.T) {
		// Arrange
		h := initialized(t)
		h.remote.mu.Lock()
		h.remote.artists = []remote.ArtistRecord{{ID: "a1", Name: "The Beatles"}}
		h.remote.mu.Unlock()
		h.store.mu.Lock()
		h.store.artists.set([]domain.Artist{{ID: "a1", Name: "Beatles"}})
		h.store.mu.Unlock()

		// Act
		a, err := h.store.FindOrCreateArtist(context.Background(), "the beatles")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "a1", a.ID)
		artists := h.store.Artists()
		require.Len(t, artists, 1)
		assert.Equal(t, "The Beatles", artists[0].Name)
	})

	t.Run("should reject an empty name", func(t *testing.T) {
		h := initialized(t)

		_, err := h.store.FindOrCreateArtist(context.Background(), "  ")

		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
	})
}

func addLibraryItems(t *testing.T, h *harness, names ...string) []domain.LibraryItem {
	t.Helper()
	categoryID := h.store.Categories()[0].ID
	items := make([]domain.LibraryItem, 0, len(names))
	for _, name := range names {
		item, err := h.store.AddLibraryItem(context.Background(), domain.LibraryItem{Name: name, CategoryID: categoryID})
		require.NoError(t, err)
		items = append(items, item)
	}
	return items
}

func TestStore_CurrentSession(t *testing.T) {
	t.Run("should start a session on the default instrument", func(t *testing.T) {
		h := initialized(t)

		session, err := h.store.StartNewSession(context.Background(), "")

		require.NoError(t, err)
		assert.True(t, session.IsRunning())
		assert.Equal(t, h.store.User().DefaultInstrumentID, session.InstrumentID)
		current, ok := h.store.CurrentSession()
		require.True(t, ok)
		assert.Equal(t, session.ID, current.ID)
		assert.Equal(t, 1, h.remote.Calls("save_current_session"))

		cached, ok := snapshot.Load[domain.Session](context.Background(), h.snap, snapshot.KeyCurrentSession)
		require.True(t, ok)
		assert.Equal(t, session.ID, cached.ID)
	})

	t.Run("should refuse a second session", func(t *testing.T) {
		h := initialized(t)
		_, err := h.store.StartNewSession(context.Background(), "")
		require.NoError(t, err)

		_, err = h.store.StartNewSession(context.Background(), "")

		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConflict))
		assert.Equal(t, 1, h.remote.Calls("save_current_session"))
	})

	t.Run("should reject an unknown instrument", func(t *testing.T) {
		h := initialized(t)

		_, err := h.store.StartNewSession(context.Background(), "nope")

		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))
	})

	t.Run("should reject items not in the library", func(t *testing.T) {
		h := initialized(t)
		_, err := h.store.StartNewSession(context.Background(), "")
		require.NoError(t, err)

		_, err = h.store.AddItemToSession(context.Background(), "missing")

		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))
	})

	t.Run("should report a missing session on mutation", func(t *testing.T) {
		h := initialized(t)
		items := addLibraryItems(t, h, "Blackbird")

		_, err := h.store.AddItemToSession(context.Background(), items[0].ID)

		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))
		assert.Equal(t, "NO_CURRENT_SESSION", apperrors.GetErrorCode(err))
	})

	t.Run("should keep the previous session when a save fails", func(t *testing.T) {
		h := initialized(t)
		items := addLibraryItems(t, h, "Blackbird")
		_, err := h.store.StartNewSession(context.Background(), "")
		require.NoError(t, err)
		h.remote.FailWith("save_current_session", errBoom)

		_, err = h.store.AddItemToSession(context.Background(), items[0].ID)

		require.Error(t, err)
		current, _ := h.store.CurrentSession()
		assert.Empty(t, current.Items)
	})

	t.Run("should add, time and remove items", func(t *testing.T) {
		h := initialized(t)
		ctx := context.Background()
		items := addLibraryItems(t, h, "Blackbird", "Scales")
		_, err := h.store.StartNewSession(ctx, "")
		require.NoError(t, err)

		_, err = h.store.AddItemToSession(ctx, items[0].ID)
		require.NoError(t, err)
		session, err := h.store.AddItemToSession(ctx, items[1].ID)
		require.NoError(t, err)
		require.Len(t, session.Items, 2)
		assert.Equal(t, "Blackbird", session.Items[0].Name)
		assert.Equal(t, items[0].CategoryID, session.Items[0].CategoryID)

		session, err = h.store.UpdateSessionItemTime(ctx, session.Items[1].ID, 42*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 42*time.Second, session.Items[1].TimeSpent)

		session, err = h.store.RemoveItemFromSession(ctx, session.Items[0].ID)
		require.NoError(t, err)
		require.Len(t, session.Items, 1)
		assert.Equal(t, "Scales", session.Items[0].Name)

		_, err = h.store.RemoveItemFromSession(ctx, "gone")
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))
	})

	t.Run("should update notes", func(t *testing.T) {
		h := initialized(t)
		_, err := h.store.StartNewSession(context.Background(), "")
		require.NoError(t, err)

		session, err := h.store.UpdateCurrentSessionNotes(context.Background(), "slow tempo")

		require.NoError(t, err)
		assert.Equal(t, "slow tempo", session.Notes)
	})
}

func TestStore_EndCurrentSession(t *testing.T) {
	start := func(t *testing.T, h *harness) domain.Session {
		t.Helper()
		ctx := context.Background()
		items := addLibraryItems(t, h, "Blackbird", "Scales")
		_, err := h.store.StartNewSession(ctx, "")
		require.NoError(t, err)
		for _, item := range items {
			_, err = h.store.AddItemToSession(ctx, item.ID)
			require.NoError(t, err)
		}
		session, _ := h.store.CurrentSession()
		_, err = h.store.UpdateSessionItemTime(ctx, session.Items[0].ID, 90*time.Second)
		require.NoError(t, err)
		session, err = h.store.UpdateSessionItemTime(ctx, session.Items[1].ID, 75*time.Second)
		require.NoError(t, err)
		return session
	}

	t.Run("should move the session into history with the item total", func(t *testing.T) {
		// Arrange
		h := initialized(t)
		running := start(t, h)
		ctx := context.Background()

		// Act
		done, err := h.store.EndCurrentSession(ctx, "good practice")

		// Assert
		require.NoError(t, err)
		require.NotNil(t, done)
		assert.Equal(t, running.ID, done.ID)
		assert.Equal(t, domain.SessionStatusCompleted, done.Status)
		assert.Equal(t, 165*time.Second, done.TotalTime)
		assert.Equal(t, "good practice", done.Notes)
		require.NotNil(t, done.EndTime)
		assert.True(t, fixedNow.Equal(*done.EndTime))

		sessions := h.store.Sessions()
		require.Len(t, sessions, 1)
		assert.Equal(t, done.ID, sessions[0].ID)

		_, ok := h.store.CurrentSession()
		assert.False(t, ok)
		_, ok = snapshot.Load[domain.Session](ctx, h.snap, snapshot.KeyCurrentSession)
		assert.False(t, ok)
		assert.Nil(t, h.remote.current)
	})

	t.Run("should return nil without a running session", func(t *testing.T) {
		h := initialized(t)

		done, err := h.store.EndCurrentSession(context.Background(), "")

		assert.NoError(t, err)
		assert.Nil(t, done)
		assert.Zero(t, h.remote.Calls("create_session"))
	})

	t.Run("should keep the running session when completion fails", func(t *testing.T) {
		h := initialized(t)
		running := start(t, h)
		h.remote.FailWith("create_session", errBoom)

		_, err := h.store.EndCurrentSession(context.Background(), "")

		require.Error(t, err)
		current, ok := h.store.CurrentSession()
		require.True(t, ok)
		assert.Equal(t, running.ID, current.ID)
		assert.Empty(t, h.store.Sessions())
	})

	t.Run("should clear locally when the remote slot cannot be cleared", func(t *testing.T) {
		h := initialized(t)
		start(t, h)
		h.remote.FailWith("delete_current_session", errBoom)

		done, err := h.store.EndCurrentSession(context.Background(), "")

		require.NoError(t, err)
		require.NotNil(t, done)
		_, ok := h.store.CurrentSession()
		assert.False(t, ok)
		assert.Len(t, h.store.Sessions(), 1)
	})

	t.Run("should prepend to history", func(t *testing.T) {
		h := initialized(t)
		ctx := context.Background()
		_, err := h.store.StartNewSession(ctx, "")
		require.NoError(t, err)
		first, err := h.store.EndCurrentSession(ctx, "")
		require.NoError(t, err)
		_, err = h.store.StartNewSession(ctx, "")
		require.NoError(t, err)
		second, err := h.store.EndCurrentSession(ctx, "")
		require.NoError(t, err)

		sessions := h.store.Sessions()
		require.Len(t, sessions, 2)
		assert.Equal(t, second.ID, sessions[0].ID)
		assert.Equal(t, first.ID, sessions[1].ID)
	})
}

func TestStore_CancelCurrentSession(t *testing.T) {
	t.Run("should discard the session without history", func(t *testing.T) {
		h := initialized(t)
		_, err := h.store.StartNewSession(context.Background(), "")
		require.NoError(t, err)

		require.NoError(t, h.store.CancelCurrentSession(context.Background()))

		_, ok := h.store.CurrentSession()
		assert.False(t, ok)
		assert.Empty(t, h.store.Sessions())
		assert.Equal(t, 1, h.remote.Calls("delete_current_session"))
	})

	t.Run("should keep the session when the remote delete fails", func(t *testing.T) {
		h := initialized(t)
		_, err := h.store.StartNewSession(context.Background(), "")
		require.NoError(t, err)
		h.remote.FailWith("delete_current_session", errBoom)

		err = h.store.CancelCurrentSession(context.Background())

		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeRemote))
		_, ok := h.store.CurrentSession()
		assert.True(t, ok)
	})

	t.Run("should do nothing without a session", func(t *testing.T) {
		h := initialized(t)

		assert.NoError(t, h.store.CancelCurrentSession(context.Background()))
		assert.Zero(t, h.remote.Calls("delete_current_session"))
	})
}

func TestStore_SetTheme(t *testing.T) {
	t.Run("should apply locally and save remotely", func(t *testing.T) {
		h := initialized(t)
		ctx := context.Background()

		require.NoError(t, h.store.SetTheme(ctx, "light"))
		h.store.Close()

		assert.Equal(t, "light", h.store.Theme())
		assert.Equal(t, "light", h.themes[len(h.themes)-1])
		cached, ok := snapshot.Load[string](ctx, h.snap, snapshot.KeyTheme)
		require.True(t, ok)
		assert.Equal(t, "light", cached)
		assert.Equal(t, "light", h.remote.theme)
	})

	t.Run("should not surface a remote failure", func(t *testing.T) {
		h := initialized(t)
		h.remote.FailWith("set_theme", errBoom)

		err := h.store.SetTheme(context.Background(), "light")
		h.store.Close()

		assert.NoError(t, err)
		assert.Equal(t, "light", h.store.Theme())
		assert.Equal(t, 1, h.remote.Calls("set_theme"))
		assert.Equal(t, "dark", h.remote.theme)
	})

	t.Run("should outlive the caller's context", func(t *testing.T) {
		h := initialized(t)
		ctx, cancel := context.WithCancel(context.Background())

		require.NoError(t, h.store.SetTheme(ctx, "light"))
		cancel()
		h.store.Close()

		assert.Equal(t, "light", h.remote.theme)
	})

	t.Run("should reject unknown themes", func(t *testing.T) {
		h := initialized(t)

		err := h.store.SetTheme(context.Background(), "neon")

		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
		assert.Equal(t, DefaultTheme, h.store.Theme())
	})
}

func TestStore_UpdateUser(t *testing.T) {
	t.Run("should save the profile", func(t *testing.T) {
		h := initialized(t)
		user := h.store.User()
		user.Name = "Jimi"

		saved, err := h.store.UpdateUser(context.Background(), user)

		require.NoError(t, err)
		assert.Equal(t, "Jimi", saved.Name)
		assert.Equal(t, "Jimi", h.store.User().Name)
	})

	t.Run("should reject an unknown default instrument", func(t *testing.T) {
		h := initialized(t)

		_, err := h.store.UpdateUser(context.Background(), domain.User{Name: "Jimi", DefaultInstrumentID: "nope"})

		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))
	})
}

func TestStore_Data(t *testing.T) {
	t.Run("should reload after a reset", func(t *testing.T) {
		h := initialized(t)
		addLibraryItems(t, h, "Blackbird")

		require.NoError(t, h.store.Reset(context.Background()))

		assert.Empty(t, h.store.Library())
		assert.Len(t, h.store.Categories(), len(domain.DefaultCategories()))
		assert.True(t, h.store.Initialized())
	})

	t.Run("should round trip an export through import", func(t *testing.T) {
		h := initialized(t)
		ctx := context.Background()
		data, err := h.store.Export(ctx)
		require.NoError(t, err)

		require.NoError(t, h.store.Import(ctx, data))

		assert.Len(t, h.store.Categories(), len(domain.DefaultCategories()))
		assert.Equal(t, 2, h.remote.Calls("init"))
	})

	t.Run("should surface export failures", func(t *testing.T) {
		h := initialized(t)
		h.remote.FailWith("export", errBoom)

		_, err := h.store.Export(context.Background())

		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "export"))
	})
}
