package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
})

// TestChainOrder tests that the first middleware is outermost
func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(okHandler, tag("a"), tag("b"), tag("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

// TestRequestID tests ID generation and propagation
func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	t.Run("Generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		id := rec.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		assert.Equal(t, id, seen)
	})

	t.Run("Propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
		assert.Equal(t, "abc-123", seen)
	})

	assert.Empty(t, RequestIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}

// TestLogging tests the structured request log
func TestLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), RequestID, Logging(zap.New(core)))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/simulate", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "/simulate", fields["path"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}

// TestRecovery tests that panics become 500 responses
func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := Recovery(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kernel blew up")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
	assert.Equal(t, 1, logs.Len())
}

// TestCORS tests the origin allow-list
func TestCORS(t *testing.T) {
	h := CORS([]string{"http://localhost:3000"})(okHandler)

	tests := []struct {
		name   string
		origin string
		allow  string
	}{
		{"Allowed origin", "http://localhost:3000", "http://localhost:3000"},
		{"Other origin", "http://evil.example", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.allow, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}

	t.Run("Preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/simulate", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	})
}

// TestRateLimiter tests per-client token buckets
func TestRateLimiter(t *testing.T) {
	limiter, err := NewRateLimiter(rate.Limit(1), 2, 16)
	require.NoError(t, err)
	h := limiter.Middleware(okHandler)

	send := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/simulate", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1111"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:2222"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:3333"))

	// a different client has its own bucket
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1111"))

	assert.Same(t, limiter.GetLimiter("10.0.0.1"), limiter.GetLimiter("10.0.0.1"))
}

// TestRateLimiterEviction tests that the client table stays bounded
func TestRateLimiterEviction(t *testing.T) {
	limiter, err := NewRateLimiter(rate.Limit(1), 1, 2)
	require.NoError(t, err)

	first := limiter.GetLimiter("a")
	limiter.GetLimiter("b")
	limiter.GetLimiter("c")
	assert.Equal(t, 2, limiter.clients.Len())
	assert.NotSame(t, first, limiter.GetLimiter("a"))
}

// TestClientIP tests client address extraction
func TestClientIP(t *testing.T) {
	tests := []struct {
		name      string
		trust     bool
		remote    string
		forwarded string
		expected  string
	}{
		{"Remote addr", false, "192.168.1.5:4000", "", "192.168.1.5"},
		{"Forwarded header ignored", false, "10.0.0.1:80", "203.0.113.7, 10.0.0.1", "10.0.0.1"},
		{"Forwarded header trusted", true, "10.0.0.1:80", "203.0.113.7, 10.0.0.1", "203.0.113.7"},
		{"Trusted but absent", true, "10.0.0.1:80", "", "10.0.0.1"},
		{"Trusted but blank hop", true, "10.0.0.1:80", " , 10.0.0.2", "10.0.0.1"},
		{"No port", false, "192.168.1.5", "", "192.168.1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, err := NewRateLimiter(rate.Limit(1), 1, 4)
			require.NoError(t, err)
			limiter.TrustForwarded = tt.trust

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.expected, limiter.clientIP(req))
		})
	}
}

// TestRateLimiterForwardedRotation tests that a client cycling X-Forwarded-For
// values still drains a single bucket
func TestRateLimiterForwardedRotation(t *testing.T) {
	limiter, err := NewRateLimiter(rate.Limit(1), 1, 16)
	require.NoError(t, err)
	h := limiter.Middleware(okHandler)

	send := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/simulate", nil)
		req.RemoteAddr = "198.51.100.9:4242"
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.3"))
	assert.Equal(t, 1, limiter.clients.Len())
}
