package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "hackhub:pending:"

// RedisStore keeps registrations in Redis so every server instance sees the
// same codes. Expiry is delegated to key TTLs.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to addr and pings it once.
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pending: connecting to redis: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func codeKey(code string) string   { return keyPrefix + "code:" + code }
func emailKey(email string) string { return keyPrefix + "email:" + email }

func (r *RedisStore) Save(ctx context.Context, reg Registration) error {
	reg.Email = normalizeEmail(reg.Email)
	reg.ExpiresAt = time.Now().Add(r.ttl)

	payload, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("pending: encoding registration: %w", err)
	}

	old, err := r.client.Get(ctx, emailKey(reg.Email)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("pending: reading previous code: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if old != "" && old != reg.Code {
			pipe.Del(ctx, codeKey(old))
		}
		pipe.Set(ctx, codeKey(reg.Code), payload, r.ttl)
		pipe.Set(ctx, emailKey(reg.Email), reg.Code, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("pending: saving registration: %w", err)
	}
	return nil
}

// releaseEmail drops the email → code pointer only while it still names the
// code being taken. A re-registration that slipped in between keeps its
// fresh pointer.
var releaseEmail = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Take uses GETDEL (Redis 6.2+): the read and the delete are one command, so
// only one caller can ever receive a given code's payload.
func (r *RedisStore) Take(ctx context.Context, code string) (*Registration, error) {
	code = strings.TrimSpace(code)
	payload, err := r.client.GetDel(ctx, codeKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pending: taking registration: %w", err)
	}

	var reg Registration
	if err := json.Unmarshal(payload, &reg); err != nil {
		return nil, fmt.Errorf("pending: decoding registration: %w", err)
	}
	if err := releaseEmail.Run(ctx, r.client, []string{emailKey(reg.Email)}, code).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("pending: releasing email: %w", err)
	}
	return &reg, nil
}

// Client exposes the connection so other Redis-backed parts (the rate limit
// counters) share one pool.
func (r *RedisStore) Client() *redis.Client {
	return r.client
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
