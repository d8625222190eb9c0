// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// sweepEvery bounds how many Allow calls may pass between purges of
// expired windows.
const sweepEvery = 256

// Limiter counts events per key in fixed windows. It is safe for
// concurrent use and runs no background goroutine.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	duration time.Duration
	calls    int
	now      func() time.Time
}

type window struct {
	count     int
	expiresAt time.Time
}

// New allows up to limit events per key in each window of the given duration.
func New(limit int, duration time.Duration) *Limiter {
	return &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      time.Now,
	}
}

// Allow records one event for key and reports whether it fits the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.calls++
	if l.calls%sweepEvery == 0 {
		l.sweep(now)
	}

	w, ok := l.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining is how many events key may still record in its current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !l.now().Before(w.expiresAt) {
		return l.limit
	}
	return max(l.limit-w.count, 0)
}

// Reset forgets key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

func (l *Limiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.expiresAt) {
			delete(l.windows, k)
		}
	}
}

// ClientIP is the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// Guard throttles an endpoint by client address and by the account the
// request names (a username or an email address).
type Guard struct {
	byIP      *Limiter
	byAccount *Limiter
	message   string
}

// NewGuard builds a Guard. message is shown to throttled clients.
func NewGuard(ipLimit int, ipWindow time.Duration, accountLimit int, accountWindow time.Duration, message string) *Guard {
	return &Guard{
		byIP:      New(ipLimit, ipWindow),
		byAccount: New(accountLimit, accountWindow),
		message:   message,
	}
}

// NewLoginGuard allows 10 attempts per address per minute and 5 per
// username per 5 minutes.
func NewLoginGuard() *Guard {
	return NewGuard(10, time.Minute, 5, 5*time.Minute,
		"Too many sign-in attempts. Please wait a few minutes and try again.")
}

// NewResendGuard allows 10 requests per address and 3 per email per hour.
func NewResendGuard() *Guard {
	return NewGuard(10, time.Hour, 3, time.Hour,
		"Too many activation requests. Please try again later.")
}

// Check records an attempt and returns false with the client-facing
// message when either limit is exhausted. A nil Guard allows everything.
func (g *Guard) Check(r *http.Request, account string) (bool, string) {
	if g == nil {
		return true, ""
	}
	if !g.byIP.Allow(ClientIP(r)) {
		return false, g.message
	}
	if key := accountKey(account); key != "" && !g.byAccount.Allow(key) {
		return false, g.message
	}
	return true, ""
}

// Reset clears the account counter, e.g. after a successful sign-in.
func (g *Guard) Reset(account string) {
	if g == nil {
		return
	}
	if key := accountKey(account); key != "" {
		g.byAccount.Reset(key)
	}
}

func accountKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
