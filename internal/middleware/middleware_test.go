package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/hackhub/internal/metrics"
)

func TestLogger_RecordsStatusAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := chimiddleware.RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/brew", nil)
	req.Header.Set(chimiddleware.RequestIDHeader, "req-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTeapot, rr.Code)
	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-123"`)
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"bytes":15`)
	assert.Contains(t, out, `"level":"WARN"`, "4xx responses log at warn")
}

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/things/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/things/42", nil))
	require.Equal(t, http.StatusAccepted, rr.Code)

	scrape := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := scrape.Body.String()
	assert.Contains(t, body, `route="/things/{id}"`)
	assert.Contains(t, body, `code="202"`)
	assert.NotContains(t, body, `route="/things/42"`)
}

// =========================================================================
// SECURITY HEADER TESTS
// =========================================================================

func TestSecureHeaders(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		hsts     bool
		wantHSTS string
	}{
		{"plain http", false, ""},
		{"behind https", true, "max-age=31536000; includeSubDomains"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			SecureHeaders(tt.hsts)(ok).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, http.StatusNoContent, rr.Code)
			assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
			assert.Equal(t, "no-referrer", rr.Header().Get("Referrer-Policy"))
			assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
			assert.Equal(t, tt.wantHSTS, rr.Header().Get("Strict-Transport-Security"))
		})
	}
}

func TestSecureHeaders_SurviveErrorResponses(t *testing.T) {
	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	rr := httptest.NewRecorder()
	SecureHeaders(false)(failing).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

// =========================================================================
// RATE LIMIT TESTS
// =========================================================================

func limited(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTooManyRequests)
}

func failed(w http.ResponseWriter, r *http.Request, err error) {
	w.WriteHeader(http.StatusInternalServerError)
}

// hit sends one request from ip and returns the status.
func hit(t *testing.T, h http.Handler, ip string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/teams", nil)
	req.RemoteAddr = ip + ":40000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_RejectsOverTheLimit(t *testing.T) {
	h := RateLimit(RatePolicy{Name: "api", Requests: 3, Window: time.Hour}, nil, limited, failed)(okHandler())

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, hit(t, h, "198.51.100.7"), "request %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(t, h, "198.51.100.7"))
}

func TestRateLimit_CountsEachClientSeparately(t *testing.T) {
	h := RateLimit(RatePolicy{Name: "api", Requests: 1, Window: time.Hour}, nil, limited, failed)(okHandler())

	assert.Equal(t, http.StatusOK, hit(t, h, "198.51.100.7"))
	assert.Equal(t, http.StatusTooManyRequests, hit(t, h, "198.51.100.7"))
	assert.Equal(t, http.StatusOK, hit(t, h, "203.0.113.9"), "another client has its own budget")
}

func TestRateLimit_NestedPoliciesBothApply(t *testing.T) {
	api := RateLimit(RatePolicy{Name: "api", Requests: 10, Window: time.Hour}, nil, limited, failed)
	auth := RateLimit(RatePolicy{Name: "auth", Requests: 2, Window: time.Hour}, nil, limited, failed)
	h := api(auth(okHandler()))

	assert.Equal(t, http.StatusOK, hit(t, h, "198.51.100.7"))
	assert.Equal(t, http.StatusOK, hit(t, h, "198.51.100.7"))
	assert.Equal(t, http.StatusTooManyRequests, hit(t, h, "198.51.100.7"), "the stricter policy wins")
}

func TestRateLimit_DisabledPolicyPassesEverything(t *testing.T) {
	for _, p := range []RatePolicy{
		{Name: "off", Requests: 0, Window: time.Hour},
		{Name: "no window", Requests: 5},
	} {
		h := RateLimit(p, nil, limited, failed)(okHandler())
		for i := 0; i < 20; i++ {
			require.Equal(t, http.StatusOK, hit(t, h, "198.51.100.7"), "%s request %d", p.Name, i+1)
		}
	}
}

func TestCountOf(t *testing.T) {
	assert.Equal(t, 0, countOf(nil))
	assert.Equal(t, 7, countOf("7"))
	assert.Equal(t, 0, countOf("garbage"))
}

func TestRedisCounter_FailsOpen(t *testing.T) {
	// Nothing listens on this port; every command fails fast.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	counter := NewRedisCounter(client, slog.New(slog.NewTextHandler(io.Discard, nil)))

	h := RateLimit(RatePolicy{Name: "api", Requests: 1, Window: time.Hour}, counter, limited, failed)(okHandler())
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(t, h, "198.51.100.7"), "request %d", i+1)
	}
}

func TestRedisCounter(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	// A key per run keeps repeated runs within one window apart.
	name := "test-" + time.Now().Format("150405.000000000")
	newLimiter := func() http.Handler {
		counter := NewRedisCounter(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
		return RateLimit(RatePolicy{Name: name, Requests: 2, Window: time.Hour}, counter, limited, failed)(okHandler())
	}

	// Two limiters on one Redis behave like two server instances.
	first, second := newLimiter(), newLimiter()
	assert.Equal(t, http.StatusOK, hit(t, first, "198.51.100.7"))
	assert.Equal(t, http.StatusOK, hit(t, second, "198.51.100.7"))
	assert.Equal(t, http.StatusTooManyRequests, hit(t, first, "198.51.100.7"))

	keys, err := client.Keys(context.Background(), rateKeyPrefix+name+"*").Result()
	require.NoError(t, err)
	require.NotEmpty(t, keys)
	ttl, err := client.TTL(context.Background(), keys[0]).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0), "counters expire")
}
