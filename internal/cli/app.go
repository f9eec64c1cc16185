package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"

	"fretlog/internal/config"
	"fretlog/internal/stats"
	"fretlog/internal/store"
	"fretlog/internal/timer"

	"github.com/rs/zerolog"
)

// timeNow is a variable that can be replaced in tests
var timeNow = time.Now

// App bundles the services every command works with.
type App struct {
	store   *store.Store
	timer   *timer.Controller
	stats   *stats.Aggregator
	config  *config.Config
	logger  zerolog.Logger
	display *DisplayRelay
	out     io.Writer
	in      io.Reader
	closers []func() error
}

// AppOption configures an App.
type AppOption func(*App)

// WithOutput redirects command output, stdout by default.
func WithOutput(w io.Writer) AppOption {
	return func(a *App) { a.out = w }
}

// WithInput sets where confirmations are read from, stdin by default.
func WithInput(r io.Reader) AppOption {
	return func(a *App) { a.in = r }
}

func WithLogger(logger zerolog.Logger) AppOption {
	return func(a *App) { a.logger = logger }
}

// WithDisplayRelay hands the App the relay the timer was built with, so
// live views can subscribe to ticks.
func WithDisplayRelay(relay *DisplayRelay) AppOption {
	return func(a *App) { a.display = relay }
}

// WithCloser registers cleanup run by Close, in reverse order.
func WithCloser(fn func() error) AppOption {
	return func(a *App) { a.closers = append(a.closers, fn) }
}

// NewApp creates a new CLI application instance with dependency injection
func NewApp(s *store.Store, t *timer.Controller, agg *stats.Aggregator, cfg *config.Config, opts ...AppOption) *App {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	app := &App{
		store:  s,
		timer:  t,
		stats:  agg,
		config: cfg,
		logger: zerolog.Nop(),
		out:    os.Stdout,
		in:     os.Stdin,
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.display == nil {
		app.display = NewDisplayRelay()
	}
	return app
}

// Start loads the remote state and restores the session timer. A failed
// load is logged and the cached snapshot is used instead.
func (a *App) Start(ctx context.Context) {
	if err := a.store.Init(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("working from cached data")
	}
	if err := a.timer.Recover(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("timer recovery failed")
	}
}

// Close stops the timer tick and releases resources. Timer markers are
// kept so the next invocation resumes a running item.
func (a *App) Close() error {
	a.timer.Close()
	a.store.Close()
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

// DisplayRelay is a timer.Display whose target can be swapped while the
// timer runs.
type DisplayRelay struct {
	mu     sync.Mutex
	target timer.Display
}

func NewDisplayRelay() *DisplayRelay {
	return &DisplayRelay{}
}

// Show forwards to the current target, if any.
func (r *DisplayRelay) Show(itemID string, state timer.State, elapsed time.Duration) {
	r.mu.Lock()
	target := r.target
	r.mu.Unlock()
	if target != nil {
		target.Show(itemID, state, elapsed)
	}
}

// Attach sets the target and returns a function restoring the previous one.
func (r *DisplayRelay) Attach(d timer.Display) (detach func()) {
	r.mu.Lock()
	prev := r.target
	r.target = d
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.target = prev
		r.mu.Unlock()
	}
}

// parseTimeShorthand parses time shorthand like "30m", "2h", "1d", etc.
func parseTimeShorthand(shorthand string) (time.Duration, error) {
	re := regexp.MustCompile(`^(\d+)(s|m|h|d|w|mo|y)$`)
	matches := re.FindStringSubmatch(shorthand)
	if matches == nil {
		return 0, fmt.Errorf("invalid time format: %s", shorthand)
	}

	value, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, fmt.Errorf("invalid number in time format: %s", shorthand)
	}

	var duration time.Duration
	switch matches[2] {
	case "s":
		duration = time.Duration(value) * time.Second
	case "m":
		duration = time.Duration(value) * time.Minute
	case "h":
		duration = time.Duration(value) * time.Hour
	case "d":
		duration = time.Duration(value) * 24 * time.Hour
	case "w":
		duration = time.Duration(value) * 7 * 24 * time.Hour
	case "mo":
		duration = time.Duration(value) * 30 * 24 * time.Hour
	case "y":
		duration = time.Duration(value) * 365 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("invalid time unit: %s", matches[2])
	}

	return duration, nil
}

// parseDuration accepts shorthand ("15m") and Go durations ("1h30m").
func parseDuration(s string) (time.Duration, error) {
	if d, err := parseTimeShorthand(s); err == nil {
		return d, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %s", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration cannot be negative: %s", s)
	}
	return d, nil
}
