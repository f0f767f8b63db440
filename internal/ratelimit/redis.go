// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a limiter backed by shared Redis counters, for deployments where
// per-instance counting is not enough. Fixed-window semantics: the TTL is set
// on the first hit of a window and the counter dies with it.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis creates a limiter on the given client.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client, prefix: "ratelimit:"}
}

// Check increments the window counter and reports whether the key is over
// budget. Unlike the memory limiter the counter keeps advancing past the
// limit; the observable outcome is the same.
func (l *Redis) Check(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	redisKey := l.prefix + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit incr: %w", err)
	}

	if count == 1 {
		if err := l.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			return Result{}, fmt.Errorf("ratelimit expire: %w", err)
		}
		return Result{Remaining: limit - 1, ResetIn: window}, nil
	}

	resetIn, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit pttl: %w", err)
	}
	if resetIn < 0 {
		resetIn = window
	}

	if count > int64(limit) {
		return Result{Limited: true, ResetIn: resetIn}, nil
	}

	return Result{Remaining: limit - int(count), ResetIn: resetIn}, nil
}
