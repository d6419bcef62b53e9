// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/skills-registry/api"
	"github.com/stacklok/skills-registry/audit"
	"github.com/stacklok/skills-registry/config"
	"github.com/stacklok/skills-registry/metrics"
	"github.com/stacklok/skills-registry/registry"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the registry HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, cfg.Logger(cmd.ErrOrStderr()))
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg, m, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	limiter, closeLimiter := newLimiter(ctx, cfg, logger)
	defer closeLimiter()

	recorder := audit.NewAsyncRecorder(st,
		audit.WithQueueSize(cfg.AuditQueueSize),
		audit.WithLogger(logger),
		audit.WithFailureHook(m.AuditFailure),
	)

	km := newKeyManager(cfg, logger)
	if _, err := km.EnsureActiveIdentity(); err != nil {
		logger.Error("publisher key unavailable, publishing will fail", "path", km.Path(), "error", err)
	}
	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN not set, admin endpoints are disabled")
	}

	svc := registry.New(st, km, newPolicyLoader(cfg, logger, m),
		registry.WithAuditRecorder(recorder),
		registry.WithMetrics(m),
		registry.WithLogger(logger),
		registry.WithName(cfg.Name),
		registry.WithServerVersion(serverVersion()),
	)
	srv := api.NewServer(svc, limiter,
		api.WithAdminToken(cfg.AdminToken),
		api.WithSecureCookies(cfg.SecureCookies()),
		api.WithTrustProxy(cfg.TrustProxy),
		api.WithLimits(api.Limits(cfg.RateLimits)),
		api.WithMetrics(m),
		api.WithLogger(logger),
	)

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "addr", cfg.Addr, "env", cfg.Env, "version", serverVersion())
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := httpSrv.Shutdown(shutdownCtx)
		if cerr := recorder.Close(shutdownCtx); cerr != nil {
			logger.Warn("audit queue not drained", "error", cerr)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
