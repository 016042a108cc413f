package utils

import (
	"time"
)

// An equivalent to [time.Ticker] that also ticks immediately upon creation.
// Like time.Ticker, ticks are dropped if the reader falls behind.
type InstaTicker struct {
	C <-chan time.Time

	done   chan struct{}
	ticker *time.Ticker
}

func NewInstaTicker(d time.Duration) *InstaTicker {
	ticker := time.NewTicker(d)
	c := make(chan time.Time, 1)
	c <- time.Now()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case t := <-ticker.C:
				select {
				case c <- t:
				default:
				}
			}
		}
	}()
	return &InstaTicker{
		C:      c,
		done:   done,
		ticker: ticker,
	}
}

// Stops the ticker from ticking. Calling Stop more than once will panic.
func (it *InstaTicker) Stop() {
	it.ticker.Stop()
	close(it.done)
}
