package testing

import (
	"sync"
	"time"
)

// FakeTicker is an auto-capture ticker driven by hand with [FakeTicker.Tick].
type FakeTicker struct {
	Interval time.Duration

	ch      chan time.Time
	done    chan struct{}
	stopped sync.Once
}

// Tick delivers one tick. It reports false when nothing received it within
// a second or the ticker was stopped.
func (f *FakeTicker) Tick() bool {
	select {
	case <-f.done:
		return false
	default:
	}

	select {
	case f.ch <- time.Now():
		return true
	case <-f.done:
		return false
	case <-time.After(time.Second):
		return false
	}
}

// Stopped reports whether Stop was called.
func (f *FakeTicker) Stopped() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *FakeTicker) C() <-chan time.Time { return f.ch }

func (f *FakeTicker) Stop() {
	f.stopped.Do(func() { close(f.done) })
}

// FakeTickers hands out [FakeTicker]s and remembers them.
type FakeTickers struct {
	mu      sync.Mutex
	tickers []*FakeTicker
}

// New creates a ticker for interval d. Wrap it to build a session.TickerFunc.
func (f *FakeTickers) New(d time.Duration) *FakeTicker {
	t := &FakeTicker{Interval: d, ch: make(chan time.Time), done: make(chan struct{})}
	f.mu.Lock()
	f.tickers = append(f.tickers, t)
	f.mu.Unlock()
	return t
}

// Last returns the most recently created ticker, or nil.
func (f *FakeTickers) Last() *FakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tickers) == 0 {
		return nil
	}
	return f.tickers[len(f.tickers)-1]
}

// Count returns how many tickers were created.
func (f *FakeTickers) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}
