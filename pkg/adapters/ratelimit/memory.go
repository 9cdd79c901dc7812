// Package ratelimit implements fixed-window request limiting keyed by client.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/wadjakorntonsri/tinyread/pkg/ports"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter allows points requests per key per window within one process.
type MemoryLimiter struct {
	mu      sync.Mutex
	points  int
	window  time.Duration
	windows map[string]*window
	now     func() time.Time
}

func NewMemoryLimiter(points int, w time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		points:  points,
		window:  w,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	win, ok := l.windows[key]
	if !ok || !now.Before(win.resetAt) {
		if len(l.windows) > 10000 {
			l.sweep(now)
		}
		win = &window{resetAt: now.Add(l.window)}
		l.windows[key] = win
	}
	if win.count >= l.points {
		return false, nil
	}
	win.count++
	return true, nil
}

// sweep drops expired windows. Caller holds mu.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}
}

var _ ports.RateLimiter = (*MemoryLimiter)(nil)
