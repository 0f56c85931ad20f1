package scrape

import (
	"context"
	"sync"
	"time"
)

// hostLimiter spaces requests to the same host. Jobs of different users
// run concurrently, so the spacing is shared process-wide.
type hostLimiter struct {
	mu       sync.Mutex
	nextSlot map[string]time.Time
	interval time.Duration
}

func newHostLimiter(interval time.Duration) *hostLimiter {
	return &hostLimiter{
		nextSlot: make(map[string]time.Time),
		interval: interval,
	}
}

// wait blocks until the host's next slot opens, then claims the slot.
// Cancelling ctx abandons the wait without claiming anything.
func (l *hostLimiter) wait(ctx context.Context, host string) error {
	if l.interval <= 0 {
		return nil
	}

	for {
		l.mu.Lock()
		now := time.Now()
		at := l.nextSlot[host]
		if !at.After(now) {
			l.nextSlot[host] = now.Add(l.interval)
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		select {
		case <-time.After(at.Sub(now)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
