package middleware

import (
	"net"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP. Buckets live in an LRU cache so
// the number of tracked clients stays bounded.
type RateLimiter struct {
	clients *lru.Cache[string, *rate.Limiter]
	r       rate.Limit // e.g. 10 requests per second
	b       int        // burst allowed before the limit kicks in

	// TrustForwarded keys buckets on the first X-Forwarded-For hop. Only set it
	// behind a proxy that overwrites the header.
	TrustForwarded bool
}

// NewRateLimiter creates a limiter tracking at most size clients
func NewRateLimiter(r rate.Limit, b int, size int) (*RateLimiter, error) {
	clients, err := lru.New[string, *rate.Limiter](size)
	if err != nil {
		return nil, errors.Wrap(err, "create rate limiter cache")
	}
	return &RateLimiter{clients: clients, r: r, b: b}, nil
}

// GetLimiter returns the bucket for ip, creating it on first use
func (l *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	if limiter, ok := l.clients.Get(ip); ok {
		return limiter
	}

	limiter := rate.NewLimiter(l.r, l.b)
	// another request from the same client may have raced us here
	if prev, ok, _ := l.clients.PeekOrAdd(ip, limiter); ok {
		return prev
	}
	return limiter
}

// Middleware rejects requests over the limit with 429
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.GetLimiter(l.clientIP(r)).Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the host part of RemoteAddr, or the first X-Forwarded-For hop
// when forwarded headers are trusted
func (l *RateLimiter) clientIP(r *http.Request) string {
	if l.TrustForwarded {
		fwd := r.Header.Get("X-Forwarded-For")
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
