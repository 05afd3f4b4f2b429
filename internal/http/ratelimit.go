package http

import (
	"net/http"
	"sync"
	"time"
)

// userLimiter throttles requests per user id within a one-minute window.
// Recalculation walks the full transaction history of a period upstream,
// so the trigger endpoint gets a low per-user budget.
type userLimiter struct {
	mu        sync.Mutex
	users     map[string]*windowInfo
	perMinute int

	stopSweep    chan struct{}
	shutdownOnce sync.Once
}

type windowInfo struct {
	windowStart time.Time
	requests    int
}

func newUserLimiter(perMinute int) *userLimiter {
	l := &userLimiter{
		users:     make(map[string]*windowInfo),
		perMinute: perMinute,
		stopSweep: make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

func (l *userLimiter) allow(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.users[userID]
	if !ok || now.Sub(w.windowStart) > time.Minute {
		l.users[userID] = &windowInfo{windowStart: now, requests: 1}
		return true
	}

	w.requests++
	return w.requests <= l.perMinute
}

// sweepLoop drops windows that have been idle for over ten minutes.
func (l *userLimiter) sweepLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			cutoff := time.Now().Add(-10 * time.Minute)
			for userID, w := range l.users {
				if w.windowStart.Before(cutoff) {
					delete(l.users, userID)
				}
			}
			l.mu.Unlock()
		case <-l.stopSweep:
			return
		}
	}
}

func (l *userLimiter) stop() {
	l.shutdownOnce.Do(func() {
		close(l.stopSweep)
	})
}

func (l *userLimiter) middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(r.Header.Get(userIDHeader)) {
				w.Header().Set("Retry-After", "60")
				http.Error(w, "rate limit exceeded, try again later", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
