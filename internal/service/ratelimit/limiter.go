package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key (client IP for the API, upstream
// host for the price provider). Keys not seen for the idle TTL are evicted
// by a background janitor when one is configured.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*entry
	rps      float64
	burst    int
	now      func() time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type entry struct {
	lim      *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

type Option func(*Limiter)

// WithIdleEviction starts a janitor that, every interval, drops keys idle for
// longer than idle. Close stops it.
func WithIdleEviction(interval, idle time.Duration) Option {
	return func(l *Limiter) {
		if interval <= 0 || idle <= 0 {
			return
		}
		l.stop = make(chan struct{})
		l.done = make(chan struct{})
		go l.janitor(interval, idle)
	}
}

// New returns a limiter allowing rps sustained requests per key with the given burst.
// A non-positive rps disables limiting.
func New(rps float64, burst int, opts ...Option) *Limiter {
	if burst < 1 {
		burst = 1
	}
	l := &Limiter{limiters: make(map[string]*entry), rps: rps, burst: burst, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) get(key string) *rate.Limiter {
	now := l.now().UnixNano()

	l.mu.RLock()
	e, ok := l.limiters[key]
	l.mu.RUnlock()
	if ok {
		e.lastSeen.Store(now)
		return e.lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.limiters[key]; ok {
		e.lastSeen.Store(now)
		return e.lim
	}
	e = &entry{lim: rate.NewLimiter(rate.Limit(l.rps), l.burst)}
	e.lastSeen.Store(now)
	l.limiters[key] = e
	return e.lim
}

// Allow consumes one token for key if available.
func (l *Limiter) Allow(key string) bool {
	if l == nil || l.rps <= 0 {
		return true
	}
	return l.get(key).Allow()
}

// Wait blocks until key has a token or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if l == nil || l.rps <= 0 {
		return ctx.Err()
	}
	return l.get(key).Wait(ctx)
}

// Keys returns how many keys are tracked.
func (l *Limiter) Keys() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}

// Sweep drops keys not seen for longer than idle and returns how many went.
// An evicted key starts again with a full bucket.
func (l *Limiter) Sweep(idle time.Duration) int {
	cutoff := l.now().Add(-idle).UnixNano()

	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for key, e := range l.limiters {
		if e.lastSeen.Load() < cutoff {
			delete(l.limiters, key)
			n++
		}
	}
	return n
}

func (l *Limiter) janitor(interval, idle time.Duration) {
	defer close(l.done)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
			l.Sweep(idle)
		}
	}
}

// Close stops the janitor, if any. It is safe to call more than once.
func (l *Limiter) Close() error {
	if l == nil || l.stop == nil {
		return nil
	}
	l.closeOnce.Do(func() {
		close(l.stop)
		<-l.done
	})
	return nil
}
