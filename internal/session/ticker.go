package session

import "time"

// Ticker delivers auto-capture ticks.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a [Ticker] firing every d.
type TickerFunc func(d time.Duration) Ticker

type timeTicker struct {
	t *time.Ticker
}

// NewTimeTicker wraps [time.NewTicker].
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop() { t.t.Stop() }
