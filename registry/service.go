// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stacklok/skills-registry/audit"
	"github.com/stacklok/skills-registry/metrics"
	"github.com/stacklok/skills-registry/policy"
	"github.com/stacklok/skills-registry/signature"
	"github.com/stacklok/skills-registry/store"
)

// DefaultName is reported by Meta when no name is configured.
const DefaultName = "Skills Registry"

// PolicySource provides the policy in effect. *policy.Loader implements it.
type PolicySource interface {
	Current() policy.Snapshot
}

// KeySource provides the signing identity and the trusted key set.
// *keys.Manager implements it.
type KeySource interface {
	EnsureActiveIdentity() (signature.Identity, error)
	TrustedPublicKeys() (map[string]struct{}, error)
}

// Service implements the registry operations.
type Service struct {
	store         store.Store
	keys          KeySource
	policies      PolicySource
	audit         audit.Recorder
	metrics       *metrics.Metrics
	logger        *slog.Logger
	name          string
	serverVersion string
	now           func() time.Time
	newID         func() string
}

// Option configures a Service.
type Option func(*Service)

// WithAuditRecorder sets where publish audit entries go.
func WithAuditRecorder(r audit.Recorder) Option {
	return func(s *Service) {
		s.audit = r
	}
}

// WithMetrics sets the metrics the service reports to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithName sets the registry name reported by Meta.
func WithName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.name = name
		}
	}
}

// WithServerVersion sets the build version reported by Meta.
func WithServerVersion(v string) Option {
	return func(s *Service) {
		s.serverVersion = v
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a Service over the given collaborators.
func New(st store.Store, keys KeySource, policies PolicySource, opts ...Option) *Service {
	s := &Service{
		store:         st,
		keys:          keys,
		policies:      policies,
		audit:         discardRecorder{},
		logger:        slog.New(slog.DiscardHandler),
		name:          DefaultName,
		serverVersion: "dev",
		now:           time.Now,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Meta reports the registry name, the active policy and the build version.
func (s *Service) Meta() Meta {
	snap := s.policies.Current()
	return Meta{
		Registry: MetaRegistry{Name: s.name},
		Policy:   MetaPolicy{Hash: snap.Hash, Active: snap.Policy, LoadedAt: snap.LoadedAt},
		Server:   MetaServer{Version: s.serverVersion},
		Time:     s.now().UTC(),
	}
}

// Health pings the storage.
func (s *Service) Health(ctx context.Context) Health {
	err := s.store.Ping(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "storage ping failed", "error", err)
	}
	return Health{OK: err == nil, DB: err == nil, Time: s.now().UTC()}
}

type discardRecorder struct{}

func (discardRecorder) Record(context.Context, audit.Entry) {}
