// Package snapshot persists the last known state locally so the UI has
// data before the remote store answers.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	apperrors "fretlog/internal/errors"
	"fretlog/internal/metrics"
)

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("snapshot cache closed")

// Cache is a byte-oriented key/value backend.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key names one snapshot entry.
type Key string

const (
	KeyUser           Key = "fretlog:user"
	KeyCategories     Key = "fretlog:categories"
	KeyInstruments    Key = "fretlog:instruments"
	KeyArtists        Key = "fretlog:artists"
	KeyLibrary        Key = "fretlog:library"
	KeySessions       Key = "fretlog:sessions"
	KeyCurrentSession Key = "fretlog:current_session"
	KeyTheme          Key = "fretlog:theme"

	// Timer recovery markers.
	KeyTimerFocusedItem Key = "fretlog:timer:focused_item"
	KeyTimerStart       Key = "fretlog:timer:start"
)

// Store encodes values as JSON on top of a Cache.
type Store struct {
	cache  Cache
	logger zerolog.Logger
}

// New wraps cache.
func New(cache Cache, logger zerolog.Logger) *Store {
	return &Store{
		cache:  cache,
		logger: logger.With().Str("component", "snapshot").Logger(),
	}
}

// Load reads and decodes key. Missing, unreadable and corrupt entries are
// all reported as a miss; they are never fatal.
func Load[T any](ctx context.Context, s *Store, key Key) (T, bool) {
	var value T
	raw, ok, err := s.cache.Get(ctx, string(key))
	if err != nil {
		metrics.SnapshotReadsTotal.WithLabelValues("error").Inc()
		s.logger.Warn().Err(err).Str("key", string(key)).Msg("snapshot read failed")
		return value, false
	}
	if !ok {
		metrics.SnapshotReadsTotal.WithLabelValues("miss").Inc()
		return value, false
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		metrics.SnapshotReadsTotal.WithLabelValues("corrupt").Inc()
		s.logger.Debug().Err(err).Str("key", string(key)).Msg("discarding corrupt snapshot entry")
		var zero T
		return zero, false
	}
	metrics.SnapshotReadsTotal.WithLabelValues("hit").Inc()
	return value, true
}

// Save encodes value and writes it under key.
func (s *Store) Save(ctx context.Context, key Key, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		metrics.SnapshotWritesTotal.WithLabelValues("error").Inc()
		return apperrors.NewCacheError("encode", string(key), err)
	}
	if err := s.cache.Set(ctx, string(key), raw); err != nil {
		metrics.SnapshotWritesTotal.WithLabelValues("error").Inc()
		return apperrors.NewCacheError("write", string(key), err)
	}
	metrics.SnapshotWritesTotal.WithLabelValues("ok").Inc()
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key Key) error {
	if err := s.cache.Delete(ctx, string(key)); err != nil {
		return apperrors.NewCacheError("delete", string(key), err)
	}
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.cache.Close()
}
