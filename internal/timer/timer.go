// Package timer drives the per-item practice timers of the running session.
// At most one item holds focus and ticks at a time. Accumulated time is
// written to the session only when an item is paused; ticks refresh the
// display and nothing else.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fretlog/internal/domain"
	apperrors "fretlog/internal/errors"
	"fretlog/internal/metrics"
	"fretlog/internal/snapshot"
)

// DefaultTickInterval is the display refresh rate of a running item.
const DefaultTickInterval = time.Second

// State is the timer state of one session item.
type State int

const (
	Idle State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "idle"
	}
}

// SessionBackend is the slice of the data store the controller drives.
type SessionBackend interface {
	CurrentSession() (domain.Session, bool)
	UpdateSessionItemTime(ctx context.Context, itemID string, spent time.Duration) (domain.Session, error)
	RemoveItemFromSession(ctx context.Context, itemID string) (domain.Session, error)
	EndCurrentSession(ctx context.Context, notes string) (*domain.Session, error)
	CancelCurrentSession(ctx context.Context) error
}

// Display receives elapsed-time updates for rendering.
type Display interface {
	Show(itemID string, state State, elapsed time.Duration)
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(itemID string, state State, elapsed time.Duration)

func (f DisplayFunc) Show(itemID string, state State, elapsed time.Duration) {
	f(itemID, state, elapsed)
}

type nopDisplay struct{}

func (nopDisplay) Show(string, State, time.Duration) {}

// Option configures a Controller.
type Option func(*Controller)

func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.scheduler = s }
}

func WithDisplay(d Display) Option {
	return func(c *Controller) { c.display = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) { c.logger = logger.With().Str("component", "timer").Logger() }
}

// frozen is the elapsed time captured when an item was paused.
type frozen struct {
	elapsed time.Duration
	saved   bool
}

// Controller owns the focus slot and the tick of the running session.
type Controller struct {
	backend   SessionBackend
	markers   *snapshot.Store
	scheduler Scheduler
	display   Display
	logger    zerolog.Logger
	now       func() time.Time
	interval  time.Duration

	// ops serializes the operations that move focus; mu guards the fields
	// below and is never held across a store write.
	ops     sync.Mutex
	mu      sync.Mutex
	focused string
	start   time.Time
	tick    Task
	paused  map[string]frozen
}

// New creates a Controller. Recovery markers are kept in markers.
func New(backend SessionBackend, markers *snapshot.Store, opts ...Option) *Controller {
	c := &Controller{
		backend:   backend,
		markers:   markers,
		scheduler: TickerScheduler{},
		display:   nopDisplay{},
		logger:    zerolog.Nop(),
		now:       time.Now,
		interval:  DefaultTickInterval,
		paused:    make(map[string]frozen),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Focused returns the id of the running item, or "".
func (c *Controller) Focused() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focused
}

// State reports the timer state of an item.
func (c *Controller) State(itemID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.focused == itemID && itemID != "" {
		return Running
	}
	if _, ok := c.paused[itemID]; ok {
		return Paused
	}
	return Idle
}

// Elapsed returns the item's accumulated time as of now.
func (c *Controller) Elapsed(itemID string) time.Duration {
	c.mu.Lock()
	running := c.focused == itemID && itemID != ""
	start := c.start
	f, paused := c.paused[itemID]
	c.mu.Unlock()

	switch {
	case running:
		return c.now().Sub(start)
	case paused:
		return f.elapsed
	}
	if session, ok := c.backend.CurrentSession(); ok {
		if item, ok := session.Item(itemID); ok {
			return item.TimeSpent
		}
	}
	return 0
}

// Play starts timing an item. A different item holding focus is paused
// first, including its write.
func (c *Controller) Play(ctx context.Context, itemID string) error {
	c.ops.Lock()
	defer c.ops.Unlock()

	item, err := c.sessionItem(itemID)
	if err != nil {
		return err
	}

	if prev := c.Focused(); prev != "" {
		if prev == itemID {
			return nil
		}
		if err := c.pause(ctx, prev); err != nil {
			c.logger.Warn().Err(err).Str("item", prev).Msg("time not saved on switch, kept locally")
		}
	}

	c.mu.Lock()
	accumulated := item.TimeSpent
	if f, ok := c.paused[itemID]; ok {
		accumulated = f.elapsed
	}
	start := c.now().Add(-accumulated)
	c.focus(itemID, start)
	c.mu.Unlock()

	c.saveMarkers(ctx, itemID, start)
	c.logger.Debug().Str("item", itemID).Dur("accumulated", accumulated).Msg("timer started")
	c.display.Show(itemID, Running, accumulated)
	return nil
}

// focus takes the slot for itemID and starts its tick. Callers hold c.mu.
func (c *Controller) focus(itemID string, start time.Time) {
	c.focused = itemID
	c.start = start
	delete(c.paused, itemID)
	c.tick = c.scheduler.Every(c.interval, func() { c.onTick(itemID) })
	metrics.TimerRunning.Set(1)
}

// release gives up the slot and returns the tick to stop. Callers hold c.mu
// and must stop the task after unlocking.
func (c *Controller) release() Task {
	task := c.tick
	c.focused = ""
	c.start = time.Time{}
	c.tick = nil
	metrics.TimerRunning.Set(0)
	return task
}

func (c *Controller) onTick(itemID string) {
	c.mu.Lock()
	if c.focused != itemID {
		c.mu.Unlock()
		return
	}
	elapsed := c.now().Sub(c.start)
	c.mu.Unlock()
	c.display.Show(itemID, Running, elapsed)
}

// Pause stops a running item and writes its accumulated time once. Pausing
// an item that is not running does nothing.
func (c *Controller) Pause(ctx context.Context, itemID string) error {
	c.ops.Lock()
	defer c.ops.Unlock()
	return c.pause(ctx, itemID)
}

func (c *Controller) pause(ctx context.Context, itemID string) error {
	c.mu.Lock()
	if c.focused != itemID || itemID == "" {
		c.mu.Unlock()
		return nil
	}
	elapsed := c.now().Sub(c.start)
	task := c.release()
	c.paused[itemID] = frozen{elapsed: elapsed}
	c.mu.Unlock()

	if task != nil {
		task.Stop()
	}
	c.deleteMarker(ctx, snapshot.KeyTimerStart)
	c.display.Show(itemID, Paused, elapsed)

	return c.persist(ctx, itemID, elapsed)
}

// SetElapsed overwrites an item's accumulated time and saves it. A running
// item keeps running from the new value.
func (c *Controller) SetElapsed(ctx context.Context, itemID string, spent time.Duration) error {
	c.ops.Lock()
	defer c.ops.Unlock()

	if _, err := c.sessionItem(itemID); err != nil {
		return err
	}
	if spent < 0 {
		spent = 0
	}

	c.mu.Lock()
	state := Idle
	var start time.Time
	if c.focused == itemID {
		state = Running
		start = c.now().Add(-spent)
		c.start = start
	} else if _, ok := c.paused[itemID]; ok {
		state = Paused
		c.paused[itemID] = frozen{elapsed: spent}
	}
	c.mu.Unlock()

	if state == Running {
		c.saveMarkers(ctx, itemID, start)
	}
	c.display.Show(itemID, state, spent)
	return c.persist(ctx, itemID, spent)
}

func (c *Controller) persist(ctx context.Context, itemID string, elapsed time.Duration) error {
	_, err := c.backend.UpdateSessionItemTime(ctx, itemID, elapsed)
	metrics.TimerPersistWrites.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		return err
	}
	c.mu.Lock()
	if f, ok := c.paused[itemID]; ok && f.elapsed == elapsed {
		f.saved = true
		c.paused[itemID] = f
	}
	c.mu.Unlock()
	c.logger.Debug().Str("item", itemID).Dur("elapsed", elapsed).Msg("item time saved")
	return nil
}

// flush writes paused times whose earlier write failed.
func (c *Controller) flush(ctx context.Context) error {
	c.mu.Lock()
	pending := make(map[string]time.Duration)
	for id, f := range c.paused {
		if !f.saved {
			pending[id] = f.elapsed
		}
	}
	c.mu.Unlock()

	for id, elapsed := range pending {
		if err := c.persist(ctx, id, elapsed); err != nil {
			return err
		}
	}
	return nil
}

// Recover restores timer state after a restart from the persisted
// markers. A marked item with a start instant resumes running from that
// instant; one without is shown paused. Markers for an item no longer in
// the current session are discarded.
func (c *Controller) Recover(ctx context.Context) error {
	c.ops.Lock()
	defer c.ops.Unlock()

	if c.Focused() != "" {
		return nil
	}
	itemID, ok := snapshot.Load[string](ctx, c.markers, snapshot.KeyTimerFocusedItem)
	if !ok || itemID == "" {
		return nil
	}

	item, err := c.sessionItem(itemID)
	if err != nil {
		c.logger.Info().Str("item", itemID).Msg("discarding stale timer markers")
		c.clearMarkers(ctx)
		return nil
	}

	startMillis, running := snapshot.Load[int64](ctx, c.markers, snapshot.KeyTimerStart)
	if running && startMillis > 0 {
		start := time.UnixMilli(startMillis)
		c.mu.Lock()
		c.focus(itemID, start)
		elapsed := c.now().Sub(start)
		c.mu.Unlock()
		c.logger.Debug().Str("item", itemID).Dur("elapsed", elapsed).Msg("timer resumed")
		c.display.Show(itemID, Running, elapsed)
		return nil
	}

	c.mu.Lock()
	c.paused[itemID] = frozen{elapsed: item.TimeSpent, saved: true}
	c.mu.Unlock()
	c.display.Show(itemID, Paused, item.TimeSpent)
	return nil
}

// RemoveItem releases the item's timer, without saving its time, and then
// removes it from the session. If the removal fails the item is left
// paused with its unsaved time, which the next end of session writes.
func (c *Controller) RemoveItem(ctx context.Context, itemID string) (domain.Session, error) {
	c.ops.Lock()
	defer c.ops.Unlock()

	c.mu.Lock()
	var task Task
	held, hadTime := c.paused[itemID]
	if c.focused == itemID {
		held, hadTime = frozen{elapsed: c.now().Sub(c.start)}, true
		task = c.release()
	}
	delete(c.paused, itemID)
	c.mu.Unlock()

	if task != nil {
		task.Stop()
	}
	if marked, ok := snapshot.Load[string](ctx, c.markers, snapshot.KeyTimerFocusedItem); ok && marked == itemID {
		c.clearMarkers(ctx)
	}

	session, err := c.backend.RemoveItemFromSession(ctx, itemID)
	if err != nil {
		if hadTime {
			c.mu.Lock()
			c.paused[itemID] = held
			c.mu.Unlock()
			c.display.Show(itemID, Paused, held.elapsed)
		}
		c.logger.Warn().Err(err).Str("item", itemID).Dur("elapsed", held.elapsed).
			Msg("item not removed, keeping its time paused")
		return domain.Session{}, err
	}
	return session, nil
}

// EndSession saves the running item's time and completes the session.
func (c *Controller) EndSession(ctx context.Context, notes string) (*domain.Session, error) {
	c.ops.Lock()
	defer c.ops.Unlock()

	if focused := c.Focused(); focused != "" {
		if err := c.pause(ctx, focused); err != nil {
			return nil, err
		}
	}
	if err := c.flush(ctx); err != nil {
		return nil, err
	}
	done, err := c.backend.EndCurrentSession(ctx, notes)
	if err != nil {
		return nil, err
	}
	c.reset(ctx)
	return done, nil
}

// CancelSession stops the running item and discards the session.
func (c *Controller) CancelSession(ctx context.Context) error {
	c.ops.Lock()
	defer c.ops.Unlock()

	if focused := c.Focused(); focused != "" {
		if err := c.pause(ctx, focused); err != nil {
			c.logger.Warn().Err(err).Str("item", focused).Msg("time not saved before cancel")
		}
	}
	if err := c.backend.CancelCurrentSession(ctx); err != nil {
		return err
	}
	c.reset(ctx)
	return nil
}

// Reset stops any tick and forgets all timer state and markers.
func (c *Controller) Reset(ctx context.Context) {
	c.ops.Lock()
	defer c.ops.Unlock()
	c.reset(ctx)
}

func (c *Controller) reset(ctx context.Context) {
	c.mu.Lock()
	task := c.release()
	c.paused = make(map[string]frozen)
	c.mu.Unlock()
	if task != nil {
		task.Stop()
	}
	c.clearMarkers(ctx)
}

// Close stops the tick but keeps the markers, so a later Recover resumes
// the running item.
func (c *Controller) Close() {
	c.mu.Lock()
	task := c.tick
	c.tick = nil
	c.mu.Unlock()
	if task != nil {
		task.Stop()
	}
}

func (c *Controller) sessionItem(itemID string) (domain.SessionItem, error) {
	session, ok := c.backend.CurrentSession()
	if !ok {
		return domain.SessionItem{}, apperrors.NewNoCurrentSessionError()
	}
	item, ok := session.Item(itemID)
	if !ok {
		return domain.SessionItem{}, apperrors.NewNotFoundError("session item", itemID)
	}
	return item, nil
}

func (c *Controller) saveMarkers(ctx context.Context, itemID string, start time.Time) {
	if err := c.markers.Save(ctx, snapshot.KeyTimerFocusedItem, itemID); err != nil {
		c.logger.Warn().Err(err).Msg("timer marker not saved")
	}
	if err := c.markers.Save(ctx, snapshot.KeyTimerStart, start.UnixMilli()); err != nil {
		c.logger.Warn().Err(err).Msg("timer marker not saved")
	}
}

func (c *Controller) deleteMarker(ctx context.Context, key snapshot.Key) {
	if err := c.markers.Delete(ctx, key); err != nil {
		c.logger.Warn().Err(err).Str("key", string(key)).Msg("timer marker not cleared")
	}
}

func (c *Controller) clearMarkers(ctx context.Context) {
	c.deleteMarker(ctx, snapshot.KeyTimerFocusedItem)
	c.deleteMarker(ctx, snapshot.KeyTimerStart)
}
