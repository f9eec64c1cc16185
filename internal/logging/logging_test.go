package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugEnabled(t *testing.T) {
	t.Setenv(DebugEnv, "")
	assert.False(t, DebugEnabled())

	t.Setenv(DebugEnv, "1")
	assert.True(t, DebugEnabled())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"nonsense", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("should write JSON with component tag", func(t *testing.T) {
		t.Setenv(DebugEnv, "")
		var buf bytes.Buffer
		logger := Component(New(Options{Level: "info", Format: "json", Out: &buf}), "store")

		logger.Info().Msg("initialized")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "store", entry["component"])
		assert.Equal(t, "initialized", entry["message"])
		assert.Contains(t, entry, "time")
	})

	t.Run("should drop entries below the configured level", func(t *testing.T) {
		t.Setenv(DebugEnv, "")
		var buf bytes.Buffer
		logger := New(Options{Level: "warn", Out: &buf})

		logger.Info().Msg("hidden")

		assert.Empty(t, buf.String())
	})

	t.Run("should force debug when the environment asks for it", func(t *testing.T) {
		t.Setenv(DebugEnv, "true")
		var buf bytes.Buffer
		logger := New(Options{Level: "error", Out: &buf})

		logger.Debug().Msg("visible")

		assert.Contains(t, buf.String(), "visible")
	})
}
