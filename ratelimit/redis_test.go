// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	rdb "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	t.Parallel()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := rdb.NewClient(&rdb.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	l := New(NewRedisStore(client, "rl-test:"))
	key := Key("publish-skill", uuid.NewString())
	now := time.Now()

	for i := 1; i <= 2; i++ {
		res, err := l.Admit(ctx, key, 2, 200*time.Millisecond, now)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		assert.WithinDuration(t, now.Add(200*time.Millisecond), res.ResetAt, 50*time.Millisecond)
	}

	res, err := l.Admit(ctx, key, 2, 200*time.Millisecond, now)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	assert.Eventually(t, func() bool {
		res, err := l.Admit(ctx, key, 2, 200*time.Millisecond, time.Now())
		return err == nil && res.Allowed
	}, 2*time.Second, 50*time.Millisecond)
}
