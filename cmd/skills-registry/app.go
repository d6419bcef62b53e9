// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"

	rdb "github.com/redis/go-redis/v9"

	"github.com/stacklok/skills-registry/config"
	"github.com/stacklok/skills-registry/keys"
	"github.com/stacklok/skills-registry/metrics"
	"github.com/stacklok/skills-registry/policy"
	"github.com/stacklok/skills-registry/ratelimit"
	"github.com/stacklok/skills-registry/store"
)

const redisKeyPrefix = "skills-registry:ratelimit:"

// openStore connects to Postgres and applies migrations, or falls back to an
// in-memory store when no DATABASE_URL is configured.
func openStore(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		return store.NewMemory(), nil
	}

	pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	if err := m.RegisterPool(pg.Stat); err != nil {
		pg.Close()
		return nil, fmt.Errorf("registering pool metrics: %w", err)
	}
	return pg, nil
}

// newLimiter returns a Redis backed limiter when REDIS_ADDR is set and an
// in-memory one otherwise. The returned func releases the client.
func newLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*ratelimit.Limiter, func()) {
	if cfg.RedisAddr == "" {
		return ratelimit.New(ratelimit.NewMemoryStore()), func() {}
	}

	client := rdb.NewClient(&rdb.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		// Requests are admitted while Redis is unreachable.
		logger.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "error", err)
	}
	return ratelimit.New(ratelimit.NewRedisStore(client, redisKeyPrefix)), func() {
		_ = client.Close()
	}
}

func newKeyManager(cfg *config.Config, logger *slog.Logger) *keys.Manager {
	return keys.NewManager(cfg.KeyPath,
		keys.WithPreviousKeys(cfg.PreviousPublicKeys),
		keys.WithLogger(logger),
	)
}

func newPolicyLoader(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *policy.Loader {
	return policy.NewLoader(cfg.PolicyPath,
		policy.WithTTL(cfg.PolicyTTL),
		policy.WithAlwaysReload(cfg.Development()),
		policy.WithLogger(logger),
		policy.WithReloadHook(func(_ policy.Snapshot, err error) {
			m.PolicyReload(err)
		}),
	)
}
