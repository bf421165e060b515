package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Local is an in-process token bucket per destination. State does not
// survive a restart; use the redis limiter when that matters.
type Local struct {
	perMinute int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func NewLocal(perMinute int) *Local {
	return &Local{
		perMinute: perMinute,
		buckets:   make(map[string]*rate.Limiter),
	}
}

func (l *Local) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	lim, ok := l.buckets[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)
		l.buckets[key] = lim
	}
	l.mu.Unlock()

	return lim.Allow(), nil
}
