package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fretlog/internal/cli"
	"fretlog/internal/config"
)

func TestNewApp(t *testing.T) {
	setup := func(t *testing.T) *config.Config {
		t.Helper()
		dir := t.TempDir()
		cfg := config.NewConfig()
		cfg.Logging.Level = "disabled"
		cfg.Remote.Mode = config.RemoteModeEmbedded
		cfg.Remote.DatabasePath = filepath.Join(dir, "fretlog.db")
		cfg.Cache.Backend = config.CacheBackendBolt
		cfg.Cache.Path = filepath.Join(dir, "snapshot.bolt")
		return cfg
	}

	run := func(t *testing.T, cfg *config.Config, args ...string) string {
		t.Helper()
		out := &bytes.Buffer{}
		factory := func(ctx context.Context, _ *config.Config) (*cli.App, error) {
			app, err := newApp(ctx, cfg)
			if err != nil {
				return nil, err
			}
			cli.WithOutput(out)(app)
			return app, nil
		}
		root := cli.NewRootCommand(factory)
		root.Command().SetArgs(args)
		root.Command().SetOut(out)
		require.NoError(t, root.ExecuteContext(context.Background()))
		return out.String()
	}

	t.Run("should keep data in the embedded database across invocations", func(t *testing.T) {
		// Arrange
		cfg := setup(t)

		// Act
		run(t, cfg, "library", "add", "Blackbird", "--category", "Song")
		output := run(t, cfg, "library", "list")

		// Assert
		assert.Contains(t, output, "Blackbird")
	})

	t.Run("should share the running session through a redis snapshot", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := setup(t)
		cfg.Cache.Backend = config.CacheBackendRedis
		cfg.Cache.Redis.Addr = mr.Addr()

		run(t, cfg, "session", "start")

		assert.NotEmpty(t, mr.Keys())
	})

	t.Run("should reject an unreachable redis cache", func(t *testing.T) {
		cfg := setup(t)
		cfg.Cache.Backend = config.CacheBackendRedis
		cfg.Cache.Redis.Addr = "127.0.0.1:1"

		app, err := newApp(context.Background(), cfg)

		assert.Nil(t, app)
		assert.ErrorContains(t, err, "failed to open snapshot cache")
	})

	t.Run("should reject an invalid server URL", func(t *testing.T) {
		cfg := setup(t)
		cfg.Remote.Mode = config.RemoteModeHTTP
		cfg.Remote.BaseURL = "://nowhere"

		_, err := newApp(context.Background(), cfg)

		assert.ErrorContains(t, err, "failed to create remote client")
	})
}
