// Package ratelimit provides a per-client token bucket middleware for
// net/http.
package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

const defaultMaxClients = 100_000

// Limiter is a per-IP token bucket rate limiter. The least recently seen
// client is forgotten once maxClients buckets exist.
type Limiter struct {
	every      rate.Limit
	burst      int
	maxClients int
	exempt     map[string]bool
	counter    prometheus.Counter

	mu      sync.Mutex
	buckets *lru.Cache[string, *rate.Limiter]
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithCounter sets a Prometheus counter incremented on each 429.
func WithCounter(c prometheus.Counter) Option {
	return func(l *Limiter) { l.counter = c }
}

// WithMaxClients caps the number of tracked client buckets.
func WithMaxClients(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.maxClients = n
		}
	}
}

// WithExempt lists request paths that are never limited.
func WithExempt(paths ...string) Option {
	return func(l *Limiter) {
		for _, p := range paths {
			l.exempt[p] = true
		}
	}
}

// New creates a limiter allowing n requests per interval with the given
// burst.
func New(n, burst int, interval time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		every:      rate.Every(interval / time.Duration(max(n, 1))),
		burst:      burst,
		maxClients: defaultMaxClients,
		exempt:     make(map[string]bool),
	}
	for _, o := range opts {
		o(l)
	}
	l.buckets, _ = lru.New[string, *rate.Limiter](l.maxClients)
	return l
}

// Middleware enforces the limit per client IP (X-Real-IP, set by chi's
// RealIP middleware, or the RemoteAddr host).
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.exempt[r.URL.Path] || l.allow(clientIP(r)) {
			next.ServeHTTP(w, r)
			return
		}
		if l.counter != nil {
			l.counter.Inc()
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
	})
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (l *Limiter) allow(client string) bool {
	l.mu.Lock()
	b, ok := l.buckets.Get(client)
	if !ok {
		b = rate.NewLimiter(l.every, l.burst)
		l.buckets.Add(client, b)
	}
	l.mu.Unlock()
	return b.Allow()
}

// Clients returns the number of tracked client buckets.
func (l *Limiter) Clients() int {
	return l.buckets.Len()
}
