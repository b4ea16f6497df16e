package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/tendant/simple-cards/pkg/domain"
)

const loginAttemptsKeyPrefix = "login_attempts:"

// incrementFailureScript mirrors the Postgres upsert. Blocked records expire
// natively at blocked_until so no sweep is needed.
//
// KEYS[1] record key
// ARGV[1] now (unix ms), ARGV[2] threshold, ARGV[3] blocked-until (unix ms)
var incrementFailureScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local threshold = tonumber(ARGV[2])
local attempts = tonumber(redis.call('HGET', KEYS[1], 'attempts') or '0')
local blocked = tonumber(redis.call('HGET', KEYS[1], 'blocked_until') or '0')

if blocked > 0 and blocked <= now then
	attempts = 0
	blocked = 0
end

attempts = attempts + 1
if blocked == 0 and attempts >= threshold then
	blocked = tonumber(ARGV[3])
end

redis.call('HSET', KEYS[1], 'attempts', attempts, 'last_attempt', now, 'blocked_until', blocked)
if blocked > 0 then
	redis.call('PEXPIREAT', KEYS[1], blocked)
else
	redis.call('PERSIST', KEYS[1])
end
return {attempts, now, blocked}
`)

// RedisLoginAttemptsStore keeps login attempt records in Redis hashes.
type RedisLoginAttemptsStore struct {
	client redis.UniversalClient
}

func NewRedisLoginAttemptsStore(client redis.UniversalClient) *RedisLoginAttemptsStore {
	return &RedisLoginAttemptsStore{client: client}
}

func loginAttemptsKey(email string) string {
	return loginAttemptsKeyPrefix + email
}

func (s *RedisLoginAttemptsStore) Get(ctx context.Context, key string) (*domain.LoginAttempt, error) {
	fields, err := s.client.HGetAll(ctx, loginAttemptsKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("get login attempts: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	rec, err := parseLoginAttempt(key, fields)
	if err != nil {
		return nil, fmt.Errorf("get login attempts: %w", err)
	}
	return rec, nil
}

func parseLoginAttempt(key string, fields map[string]string) (*domain.LoginAttempt, error) {
	var vals [3]int64
	for i, name := range []string{"attempts", "last_attempt", "blocked_until"} {
		v, err := strconv.ParseInt(fields[name], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("field %s of %s: %w", name, loginAttemptsKey(key), err)
		}
		vals[i] = v
	}
	return buildLoginAttempt(key, vals[0], vals[1], vals[2]), nil
}

func (s *RedisLoginAttemptsStore) IncrementFailure(ctx context.Context, key string, now time.Time, threshold int, blockedUntil time.Time) (*domain.LoginAttempt, error) {
	res, err := incrementFailureScript.Run(ctx, s.client,
		[]string{loginAttemptsKey(key)},
		now.UnixMilli(), threshold, blockedUntil.UnixMilli(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("record login failure: %w", err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("record login failure: unexpected script reply %v", res)
	}
	return buildLoginAttempt(key, res[0], res[1], res[2]), nil
}

func (s *RedisLoginAttemptsStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, loginAttemptsKey(key)).Err(); err != nil {
		return fmt.Errorf("delete login attempts: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op: blocked records carry a Redis expiry.
func (s *RedisLoginAttemptsStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func buildLoginAttempt(email string, attempts, lastMillis, blockedMillis int64) *domain.LoginAttempt {
	rec := &domain.LoginAttempt{
		Email:         email,
		Attempts:      int(attempts),
		LastAttemptAt: time.UnixMilli(lastMillis).UTC(),
	}
	if blockedMillis > 0 {
		t := time.UnixMilli(blockedMillis).UTC()
		rec.BlockedUntil = &t
	}
	return rec
}
