package timer

import (
	"sync"
	"time"
)

// Task is a running periodic callback.
type Task interface {
	// Stop cancels the task. It is idempotent, and once it returns the
	// callback will not run again. It must not be called from inside the
	// callback.
	Stop()
}

// Scheduler runs fn every interval until the returned Task is stopped.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Task
}

// TickerScheduler schedules callbacks on a time.Ticker.
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) Task {
	t := &tickerTask{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go t.run(fn)
	return t
}

type tickerTask struct {
	ticker *time.Ticker
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
}

func (t *tickerTask) run(fn func()) {
	defer close(t.exited)
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			select {
			case <-t.done:
				return
			default:
			}
			fn()
		}
	}
}

func (t *tickerTask) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
	<-t.exited
}
