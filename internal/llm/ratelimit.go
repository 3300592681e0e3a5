package llm

import (
	"context"
	"sync"
	"time"
)

// pacer spaces backend calls interval apart while letting up to burst calls
// start immediately. It tracks the theoretical arrival time of the next call
// instead of running a refill goroutine.
type pacer struct {
	mu       sync.Mutex
	interval time.Duration
	slack    time.Duration
	tat      time.Time
	done     chan struct{}
	once     sync.Once
}

// newPacer returns nil when rps <= 0; a nil pacer never blocks.
func newPacer(rps float64, burst int) *pacer {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	interval := time.Duration(float64(time.Second) / rps)
	if interval <= 0 {
		interval = time.Nanosecond
	}
	return &pacer{
		interval: interval,
		slack:    time.Duration(burst-1) * interval,
		done:     make(chan struct{}),
	}
}

// reserve claims the next slot and returns how long to wait for it.
func (p *pacer) reserve(now time.Time) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	tat := p.tat
	if tat.Before(now) {
		tat = now
	}
	p.tat = tat.Add(p.interval)
	return tat.Sub(now) - p.slack
}

// Wait blocks until the caller's slot arrives, ctx ends or the pacer stops.
func (p *pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	select {
	case <-p.done:
		return context.Canceled
	default:
	}
	d := p.reserve(time.Now())
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return context.Canceled
	}
}

// Stop fails pending and later Wait calls.
func (p *pacer) Stop() {
	if p == nil {
		return
	}
	p.once.Do(func() { close(p.done) })
}
