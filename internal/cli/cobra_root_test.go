package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fretlog/internal/config"
	"fretlog/internal/repository/sqlite"
	"fretlog/internal/snapshot"
	"fretlog/internal/stats"
	"fretlog/internal/store"
	"fretlog/internal/timer"
)

// fileFactory builds Apps over the sqlite file named in the config, so
// state carries across invocations like it does for the real binary.
func fileFactory(out *bytes.Buffer, seen *[]*config.Config) AppFactory {
	return func(ctx context.Context, cfg *config.Config) (*App, error) {
		*seen = append(*seen, cfg)
		repo, err := sqlite.New(ctx, cfg.Remote.DatabasePath)
		if err != nil {
			return nil, err
		}
		markers := snapshot.New(snapshot.NewMemory(), zerolog.Nop())
		s := store.New(repo, markers)
		tc := timer.New(s, markers, timer.WithScheduler(stubScheduler{}))
		agg, err := stats.New(s)
		if err != nil {
			return nil, err
		}
		return NewApp(s, tc, agg, cfg, WithOutput(out), WithCloser(repo.Close)), nil
	}
}

func TestRootCommand(t *testing.T) {
	setup := func(t *testing.T) (func(args ...string) error, *bytes.Buffer, *[]*config.Config) {
		t.Helper()
		t.Setenv("FRETLOG_CACHE_BACKEND", "memory")
		dbPath := filepath.Join(t.TempDir(), "fretlog.db")
		out := &bytes.Buffer{}
		seen := &[]*config.Config{}
		run := func(args ...string) error {
			root := NewRootCommand(fileFactory(out, seen))
			root.Command().SetArgs(append([]string{"--db", dbPath}, args...))
			root.Command().SetOut(out)
			return root.ExecuteContext(context.Background())
		}
		return run, out, seen
	}

	t.Run("should run a practice session across invocations", func(t *testing.T) {
		// Arrange
		run, out, _ := setup(t)

		// Act
		require.NoError(t, run("library", "add", "Blackbird", "--category", "Song", "--artist", "The Beatles", "--rating", "4"))
		require.NoError(t, run("session", "start"))
		require.NoError(t, run("session", "add", "black"))
		require.NoError(t, run("session", "time", "1", "25m"))
		require.NoError(t, run("session", "end", "nice"))
		out.Reset()
		require.NoError(t, run("stats", "top", "all"))

		// Assert
		assert.Contains(t, out.String(), "Blackbird")
		assert.Contains(t, out.String(), "25m")
	})

	t.Run("should apply flag overrides to the config", func(t *testing.T) {
		run, _, seen := setup(t)

		require.NoError(t, run("--log-level", "error", "--timeout", "5s", "profile"))

		require.Len(t, *seen, 1)
		cfg := (*seen)[0]
		assert.Equal(t, config.RemoteModeEmbedded, cfg.Remote.Mode)
		assert.Equal(t, "error", cfg.Logging.Level)
		assert.Equal(t, config.CacheBackendMemory, cfg.Cache.Backend)
		assert.Equal(t, "5s", cfg.Application.Timeout.String())
	})

	t.Run("should reject an invalid remote mode before building the app", func(t *testing.T) {
		run, _, seen := setup(t)

		err := run("--remote", "carrier-pigeon", "profile")

		assert.ErrorContains(t, err, "invalid configuration")
		assert.Empty(t, *seen)
	})

	t.Run("should validate argument counts", func(t *testing.T) {
		run, _, seen := setup(t)

		err := run("session", "time", "1")

		assert.Error(t, err)
		assert.Empty(t, *seen)
	})

	t.Run("should register every command group", func(t *testing.T) {
		root := NewRootCommand(nil)

		var names []string
		for _, cmd := range root.Command().Commands() {
			names = append(names, cmd.Name())
		}

		for _, want := range []string{"sync", "session", "library", "category", "instrument", "artist", "profile", "theme", "stats", "history", "data"} {
			assert.Contains(t, names, want)
		}
	})
}
