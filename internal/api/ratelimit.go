// Request budgets for the expensive endpoints: websocket upgrades and run
// history queries against SQLite. Each client gets a fixed number of requests
// per period; the count resets when the period ends.
package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter hands out per-client request budgets.
type RateLimiter struct {
	limit  int
	period time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	clients map[string]*usage
}

// usage is one client's spend in the current period.
type usage struct {
	since time.Time
	spent int
}

// NewRateLimiter allows limit requests per client in every period.
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		period:  period,
		clock:   time.Now,
		clients: make(map[string]*usage),
	}
}

// Allow spends one request of client's budget and reports whether any was left.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock()
	u := rl.clients[client]
	if u == nil || rl.expired(u, now) {
		rl.forgetIdle(now)
		rl.clients[client] = &usage{since: now, spent: 1}
		return true
	}
	if u.spent >= rl.limit {
		return false
	}
	u.spent++
	return true
}

// RetryAfter is the number of whole seconds, rounded up, until client's
// budget refills. Unknown clients get 0.
func (rl *RateLimiter) RetryAfter(client string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	u := rl.clients[client]
	if u == nil {
		return 0
	}
	left := u.since.Add(rl.period).Sub(rl.clock())
	if left < 0 {
		return 0
	}
	return int(left.Seconds()) + 1
}

func (rl *RateLimiter) expired(u *usage, now time.Time) bool {
	return now.Sub(u.since) >= rl.period
}

// forgetIdle drops clients silent for two periods. Caller holds mu.
func (rl *RateLimiter) forgetIdle(now time.Time) {
	for client, u := range rl.clients {
		if now.Sub(u.since) > 2*rl.period {
			delete(rl.clients, client)
		}
	}
}

// clientIP prefers the first X-Forwarded-For hop, then the remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimitMiddleware answers 429 with a Retry-After header once the caller's
// budget is spent.
func RateLimitMiddleware(rl *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)
		if !rl.Allow(client) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter(client)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
