package ratelimit

import (
	"context"
	"math/rand"
	"net/url"
	"sync"
	"time"
)

// Limiter spaces out actions with a jittered delay between minDelay and
// maxDelay. Callers reserve a slot under the lock and sleep outside it, so
// concurrent waiters queue up in reservation order.
type Limiter struct {
	minDelay time.Duration
	maxDelay time.Duration
	next     time.Time
	mu       sync.Mutex
	now      func() time.Time
}

func NewLimiter(minDelay, maxDelay time.Duration) *Limiter {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Limiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
		now:      time.Now,
	}
}

// Wait blocks until the caller's slot arrives or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	wait := l.reserve()
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	slot := now
	if l.next.After(now) {
		slot = l.next
	}
	l.next = slot.Add(l.delay())
	return slot.Sub(now)
}

func (l *Limiter) delay() time.Duration {
	if l.minDelay == l.maxDelay {
		return l.minDelay
	}
	delta := l.maxDelay - l.minDelay
	return l.minDelay + time.Duration(rand.Int63n(int64(delta)))
}

// HostLimiter keeps one Limiter per upstream host. Navigations to
// different hosts never wait on each other.
type HostLimiter struct {
	minDelay time.Duration
	maxDelay time.Duration

	mu    sync.Mutex
	hosts map[string]*Limiter
}

// NewHostLimiter returns nil when minDelay and maxDelay are both zero;
// a nil *HostLimiter never blocks.
func NewHostLimiter(minDelay, maxDelay time.Duration) *HostLimiter {
	if minDelay <= 0 && maxDelay <= 0 {
		return nil
	}
	return &HostLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
		hosts:    make(map[string]*Limiter),
	}
}

// Wait paces navigations to the host of rawURL.
func (h *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	if h == nil {
		return nil
	}
	return h.limiter(hostOf(rawURL)).Wait(ctx)
}

func (h *HostLimiter) limiter(host string) *Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.hosts[host]
	if !ok {
		l = NewLimiter(h.minDelay, h.maxDelay)
		h.hosts[host] = l
	}
	return l
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
