// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"context"
	"fmt"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// incrementScript bumps the counter and sets its expiry on the first hit in
// a window, returning the count and the remaining window in milliseconds.
var incrementScript = rdb.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisStore keeps buckets in Redis so several registry instances share limits.
type RedisStore struct {
	client rdb.Scripter
	prefix string
}

// NewRedisStore creates a RedisStore. Keys are namespaced with prefix,
// "rl:" when empty.
func NewRedisStore(client rdb.Scripter, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Increment implements Store. The window is enforced by key expiry on the
// Redis server; now only anchors the reported reset time.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration, now time.Time) (int64, time.Time, error) {
	res, err := incrementScript.Run(ctx, s.client, []string{s.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("incrementing %s: %w", key, err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("incrementing %s: unexpected reply %v", key, res)
	}

	return res[0], now.Add(time.Duration(res[1]) * time.Millisecond), nil
}
