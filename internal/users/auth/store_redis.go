// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/vidora/internal/platform/constants"
)

// RedisLoginThrottle implements [LoginThrottle] with one expiring counter per
// identifier. The window starts at the first failure and is not extended by
// later ones.
type RedisLoginThrottle struct {
	client      redis.Cmdable
	maxAttempts int
	window      time.Duration
}

// NewLoginThrottle creates a Redis-backed throttle. maxAttempts <= 0 disables it.
func NewLoginThrottle(client redis.Cmdable, maxAttempts int, window time.Duration) *RedisLoginThrottle {
	return &RedisLoginThrottle{client: client, maxAttempts: maxAttempts, window: window}
}

// RetryAfter returns the remaining lock time once the failure count reaches the limit.
func (throttle *RedisLoginThrottle) RetryAfter(ctx context.Context, identifier string) (time.Duration, error) {
	if throttle.maxAttempts <= 0 {
		return 0, nil
	}

	key := loginAttemptsKey(identifier)

	count, err := throttle.client.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis_login_throttle_get_failed: %w", err)
	}
	if count < throttle.maxAttempts {
		return 0, nil
	}

	remaining, err := throttle.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis_login_throttle_ttl_failed: %w", err)
	}
	if remaining <= 0 {
		// Counter without expiry; fall back to a full window.
		return throttle.window, nil
	}
	return remaining, nil
}

// RecordFailure increments the counter, starting the window on the first failure.
func (throttle *RedisLoginThrottle) RecordFailure(ctx context.Context, identifier string) error {
	if throttle.maxAttempts <= 0 {
		return nil
	}

	key := loginAttemptsKey(identifier)

	count, err := throttle.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis_login_throttle_incr_failed: %w", err)
	}

	if count == 1 {
		if err := throttle.client.Expire(ctx, key, throttle.window).Err(); err != nil {
			return fmt.Errorf("redis_login_throttle_expire_failed: %w", err)
		}
	}

	return nil
}

// Reset deletes the counter.
func (throttle *RedisLoginThrottle) Reset(ctx context.Context, identifier string) error {
	if err := throttle.client.Del(ctx, loginAttemptsKey(identifier)).Err(); err != nil {
		return fmt.Errorf("redis_login_throttle_reset_failed: %w", err)
	}
	return nil
}

func loginAttemptsKey(identifier string) string {
	return constants.RedisPrefixLoginAttempts + identifier
}
