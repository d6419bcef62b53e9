// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/skills-registry/metrics"
	"github.com/stacklok/skills-registry/ratelimit"
	"github.com/stacklok/skills-registry/recovery"
	"github.com/stacklok/skills-registry/registry"
)

// Rate-limited operations. They prefix the limiter keys.
const (
	OpPublishSkill   = "publish-skill"
	OpPublishVersion = "publish-version"
	OpAdminLogin     = "admin-login"
)

// maxBodyBytes bounds publish and login request bodies.
const maxBodyBytes = 1 << 20

// Limits are the admission rules of the rate-limited operations.
type Limits struct {
	PublishSkill   ratelimit.Rule
	PublishVersion ratelimit.Rule
	AdminLogin     ratelimit.Rule
}

// Server holds the HTTP handlers.
type Server struct {
	svc           *registry.Service
	limiter       *ratelimit.Limiter
	limits        Limits
	adminToken    string
	secureCookies bool
	trustProxy    bool
	metrics       *metrics.Metrics
	logger        *slog.Logger
	now           func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithAdminToken sets the admin token. Without one every admin endpoint
// refuses access.
func WithAdminToken(token string) Option {
	return func(s *Server) {
		s.adminToken = token
	}
}

// WithSecureCookies marks the session cookie Secure.
func WithSecureCookies(v bool) Option {
	return func(s *Server) {
		s.secureCookies = v
	}
}

// WithTrustProxy takes the caller address from X-Forwarded-For.
func WithTrustProxy(v bool) Option {
	return func(s *Server) {
		s.trustProxy = v
	}
}

// WithLimits sets the rate limits.
func WithLimits(l Limits) Option {
	return func(s *Server) {
		s.limits = l
	}
}

// WithMetrics instruments the router and exposes /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for rate limiting and cookies.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates a Server. A nil limiter uses an in-memory bucket store.
func NewServer(svc *registry.Service, limiter *ratelimit.Limiter, opts ...Option) *Server {
	if limiter == nil {
		limiter = ratelimit.New(ratelimit.NewMemoryStore())
	}
	s := &Server{
		svc:     svc,
		limiter: limiter,
		limits: Limits{
			PublishSkill:   ratelimit.Rule{Limit: 60, Window: time.Minute},
			PublishVersion: ratelimit.Rule{Limit: 60, Window: time.Minute},
			AdminLogin:     ratelimit.Rule{Limit: 10, Window: 5 * time.Minute},
		},
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(recovery.Middleware(s.logger))
	r.Use(s.metrics.Middleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Get("/meta", s.meta)

		r.Get("/skills", s.listSkills)
		r.Get("/skills/{slug}", s.getSkill)
		r.Get("/skills/{slug}/versions", s.listVersions)
		r.Get("/skills/{slug}/versions/{version}", s.getVersion)
		r.Get("/export/skills", s.export)

		r.Route("/publish", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.With(s.rateLimit(OpPublishSkill, s.limits.PublishSkill)).Post("/skills", s.publishSkill)
			r.With(s.rateLimit(OpPublishVersion, s.limits.PublishVersion)).Post("/skills/{slug}/versions", s.publishVersion)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(s.rateLimit(OpAdminLogin, s.limits.AdminLogin)).Post("/login", s.login)
			r.Post("/logout", s.logout)
			r.With(s.requireAdmin).Get("/audit", s.auditLog)
		})
	})

	r.Handle("/metrics", s.metrics.Handler())
	return r
}
