// Package middleware holds the HTTP middleware shared by every route group.
package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/krishimitra/pkg/response"
)

// bucket is a fixed-window counter for one client.
type bucket struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per client IP in fixed windows.
type Limiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	nextSweep time.Time
}

func NewLimiter(max int, window time.Duration) *Limiter {
	return &Limiter{max: max, window: window, now: time.Now, buckets: map[string]*bucket{}}
}

// Allow records one request from key and reports whether it is within budget.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.After(l.nextSweep) {
		for k, b := range l.buckets {
			if now.After(b.resetAt) {
				delete(l.buckets, k)
			}
		}
		l.nextSweep = now.Add(l.window)
	}

	b, ok := l.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(l.window)}
		l.buckets[key] = b
	}
	b.count++
	return b.count <= l.max
}

// RateOption tunes RateLimit.
type RateOption func(*rateConfig)

type rateConfig struct {
	trustProxy bool
}

// TrustProxy keys clients by the first X-Forwarded-For hop. Only set it when
// a reverse proxy in front of the service overwrites that header.
func TrustProxy(trust bool) RateOption {
	return func(c *rateConfig) { c.trustProxy = trust }
}

// RateLimit limits each client IP to max requests per window. A max of zero
// or less disables the limit. The client IP is the connection's remote
// address unless TrustProxy is set.
//
//	auth := r.Group("", middleware.RateLimit(20, time.Minute))
func RateLimit(max int, window time.Duration, opts ...RateOption) func(http.Handler) http.Handler {
	var cfg rateConfig
	for _, o := range opts {
		o(&cfg)
	}
	l := NewLimiter(max, window)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if max > 0 && !l.Allow(clientIP(r, cfg.trustProxy)) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				response.Error(w, http.StatusTooManyRequests, "Too Many Requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := strings.TrimSpace(strings.SplitN(r.Header.Get("X-Forwarded-For"), ",", 2)[0]); fwd != "" {
			return fwd
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
