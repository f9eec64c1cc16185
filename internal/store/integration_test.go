package store

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fretlog/internal/domain"
	"fretlog/internal/repository/sqlite"
	"fretlog/internal/snapshot"
)

func TestStore_EmbeddedBackend(t *testing.T) {
	t.Run("should run a whole session against sqlite and survive a reset", func(t *testing.T) {
		// Arrange
		ctx := context.Background()
		repo, err := sqlite.New(ctx, sqlite.MemoryPath)
		require.NoError(t, err)
		t.Cleanup(func() { repo.Close() })

		now := fixedNow
		s := New(repo, snapshot.New(snapshot.NewMemory(), zerolog.Nop()),
			WithClock(func() time.Time { return now }))
		t.Cleanup(s.Close)
		require.NoError(t, s.Init(ctx))

		item, err := s.AddLibraryItem(ctx, domain.LibraryItem{Name: "Blackbird", CategoryID: s.Categories()[0].ID})
		require.NoError(t, err)

		// Act
		session, err := s.StartNewSession(ctx, "")
		require.NoError(t, err)
		session, err = s.AddItemToSession(ctx, item.ID)
		require.NoError(t, err)
		_, err = s.UpdateSessionItemTime(ctx, session.Items[0].ID, 90*time.Second)
		require.NoError(t, err)
		now = now.Add(2 * time.Minute)
		finished, err := s.EndCurrentSession(ctx, "clean run")
		require.NoError(t, err)
		require.NoError(t, s.Reload(ctx))

		// Assert
		require.NotNil(t, finished)
		assert.Equal(t, 90*time.Second, finished.TotalTime)
		_, running := s.CurrentSession()
		assert.False(t, running)
		sessions := s.Sessions()
		require.Len(t, sessions, 1)
		assert.Equal(t, finished.ID, sessions[0].ID)
		assert.Equal(t, "clean run", sessions[0].Notes)
		assert.Len(t, s.Categories(), len(domain.DefaultCategories()))

		// Reset wipes the catalog; the next load seeds it again with a fresh default instrument.
		require.NoError(t, s.Reset(ctx))
		assert.Empty(t, s.Sessions())
		require.Len(t, s.Instruments(), len(domain.DefaultInstruments()))
		assert.Equal(t, s.Instruments()[0].ID, s.User().DefaultInstrumentID)
	})
}
