package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"
)

// RatePolicy caps how many requests one client IP may send per window.
// A policy with Requests <= 0 lets everything through.
type RatePolicy struct {
	Name     string // keeps counters of different policies apart
	Requests int
	Window   time.Duration
}

// Enabled reports whether the policy limits anything.
func (p RatePolicy) Enabled() bool {
	return p.Requests > 0 && p.Window > 0
}

// RateLimit enforces policy per client IP.
//
// HOW httprate COUNTS:
// httprate keeps one counter per (key, window start) and estimates a sliding
// window from the current and the previous fixed window:
//
//	rate = previous × (time left in current window / window) + current
//
// A request is rejected once rate reaches the limit. The estimate avoids the
// burst a plain fixed window allows at its edges (N requests just before the
// boundary plus N just after).
//
// WHERE THE COUNTS LIVE:
// With counter == nil each limiter keeps its counts in process memory,
// which is right for a single instance. Behind a load balancer pass a
// RedisCounter so every instance sees the same numbers.
//
// The key is the policy name plus the client IP. chi's RealIP middleware
// must run first so RemoteAddr holds the client, not the proxy.
func RateLimit(policy RatePolicy, counter httprate.LimitCounter, onLimit http.HandlerFunc, onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	if !policy.Enabled() {
		return func(next http.Handler) http.Handler { return next }
	}

	opts := []httprate.Option{
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			ip, err := httprate.KeyByIP(r)
			if err != nil {
				return "", err
			}
			return policy.Name + ":" + ip, nil
		}),
		httprate.WithLimitHandler(onLimit),
		httprate.WithErrorHandler(onError),
	}
	if counter != nil {
		opts = append(opts, httprate.WithLimitCounter(counter))
	}
	return httprate.Limit(policy.Requests, policy.Window, opts...)
}

// =========================================================================
// REDIS COUNTER
// =========================================================================

const rateKeyPrefix = "hackhub:rate:"

// RedisCounter stores httprate's per-window counts in Redis.
//
// Every (key, window start) pair is one Redis integer. INCRBY and EXPIRE run
// in a MULTI/EXEC block, so a counter never exists without its expiry. Keys
// live for three windows: the limiter reads the current and the previous
// window, and the third absorbs clock skew between instances.
//
// FAIL OPEN:
// When Redis is unreachable the counter logs and reports zero. An outage of
// the rate limiter's backing store should not take the API down with it.
type RedisCounter struct {
	client  *redis.Client
	logger  *slog.Logger
	window  time.Duration
	timeout time.Duration
}

var _ httprate.LimitCounter = (*RedisCounter)(nil)

func NewRedisCounter(client *redis.Client, logger *slog.Logger) *RedisCounter {
	return &RedisCounter{client: client, logger: logger, timeout: 500 * time.Millisecond}
}

// Config is called once by httprate.Limit with the policy's numbers.
func (c *RedisCounter) Config(_ int, window time.Duration) {
	c.window = window
}

func (c *RedisCounter) Increment(key string, currentWindow time.Time) error {
	return c.IncrementBy(key, currentWindow, 1)
}

func (c *RedisCounter) IncrementBy(key string, currentWindow time.Time, amount int) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	k := c.key(key, currentWindow)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.IncrBy(ctx, k, int64(amount))
		pipe.Expire(ctx, k, 3*c.window)
		return nil
	})
	if err != nil {
		c.logger.Warn("rate limit counter unavailable", slog.String("error", err.Error()))
	}
	return nil
}

func (c *RedisCounter) Get(key string, currentWindow, previousWindow time.Time) (int, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	values, err := c.client.MGet(ctx, c.key(key, currentWindow), c.key(key, previousWindow)).Result()
	if err != nil {
		c.logger.Warn("rate limit counter unavailable", slog.String("error", err.Error()))
		return 0, 0, nil
	}
	return countOf(values[0]), countOf(values[1]), nil
}

func (c *RedisCounter) key(key string, window time.Time) string {
	return fmt.Sprintf("%s%s:%d", rateKeyPrefix, key, window.Unix())
}

// countOf reads one MGET slot: nil for a missing key, a string otherwise.
func countOf(v any) int {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
