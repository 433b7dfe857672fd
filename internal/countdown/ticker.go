package countdown

import "time"

// Ticker exposes the parts of time.Ticker used by the countdown.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory builds a Ticker for the supplied interval.
type TickerFactory func(time.Duration) Ticker

// DefaultTickerFactory creates a ticker backed by time.NewTicker.
func DefaultTickerFactory(interval time.Duration) Ticker {
	return &timeTicker{Ticker: time.NewTicker(interval)}
}

type timeTicker struct {
	*time.Ticker
}

func (t *timeTicker) C() <-chan time.Time {
	return t.Ticker.C
}
