package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ai-prompt-generator/admin/internal/telemetry/metrics"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	perMin   int
	limit    rate.Limit
	burst    int
	nowF     func() time.Time
}

// NewIPRateLimiter allows perMinute requests per IP with an equal burst. perMinute <= 0 disables limiting.
func NewIPRateLimiter(perMinute int) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: make(map[string]*ipLimiter),
		perMin:   perMinute,
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		nowF:     time.Now,
	}
}

// Allow reports whether a request from ip may proceed now.
func (l *IPRateLimiter) Allow(ip string) bool {
	if l == nil || l.perMin <= 0 {
		return true
	}
	now := l.nowF()
	l.mu.Lock()
	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now
	l.mu.Unlock()
	return entry.limiter.AllowN(now, 1)
}

// Prune drops limiters idle for longer than idle. Returns the number removed.
func (l *IPRateLimiter) Prune(idle time.Duration) int {
	cutoff := l.nowF().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for ip, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, ip)
			n++
		}
	}
	return n
}

// Middleware answers 429 RATE_LIMITED when the client IP is over its budget. The IP is
// the one RequestInfo resolved; without RequestInfo the connection peer is used.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, ok := r.Context().Value(clientIPKey).(string)
		if !ok || ip == "" {
			ip = ClientIP(r, nil)
		}
		if !l.Allow(ip) {
			metrics.LoginAttemptsTotal.WithLabelValues("rate_limited").Inc()
			w.Header().Set("Retry-After", "60")
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.perMin))
			WriteError(w, http.StatusTooManyRequests, CodeRateLimited, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
