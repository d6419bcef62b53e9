// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config reads the registry's settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/stacklok/skills-registry/audit"
	"github.com/stacklok/skills-registry/env"
	"github.com/stacklok/skills-registry/keys"
	"github.com/stacklok/skills-registry/logging"
	"github.com/stacklok/skills-registry/policy"
	"github.com/stacklok/skills-registry/ratelimit"
)

// appDir is the directory name used under the XDG base directories.
const appDir = "skills-registry"

// Environments accepted in REGISTRY_ENV.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvTest        = "test"
)

// Defaults applied when a variable is unset.
const (
	DefaultName = "Skills Registry"
	DefaultAddr = ":8080"
)

// Default rate limits per operation.
var (
	DefaultPublishSkillLimit   = ratelimit.Rule{Limit: 60, Window: time.Minute}
	DefaultPublishVersionLimit = ratelimit.Rule{Limit: 60, Window: time.Minute}
	DefaultAdminLoginLimit     = ratelimit.Rule{Limit: 10, Window: 5 * time.Minute}
)

// RateLimits holds the per-operation admission rules.
type RateLimits struct {
	PublishSkill   ratelimit.Rule
	PublishVersion ratelimit.Rule
	AdminLogin     ratelimit.Rule
}

// Config is the resolved registry configuration.
type Config struct {
	Env       string
	Name      string
	Addr      string
	LogLevel  slog.Level
	LogFormat logging.Format

	DatabaseURL string
	RedisAddr   string
	AdminToken  string
	TrustProxy  bool

	KeyPath            string
	PreviousPublicKeys []string

	PolicyPath string
	PolicyTTL  time.Duration

	RateLimits     RateLimits
	AuditQueueSize int
	ExportDir      string
}

// Load reads the configuration through r. Every malformed variable is
// reported, not only the first.
func Load(r env.Reader) (*Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	c := &Config{
		Env:         strings.ToLower(env.String(r, "REGISTRY_ENV", EnvProduction)),
		Name:        env.String(r, "REGISTRY_NAME", DefaultName),
		Addr:        env.String(r, "REGISTRY_ADDR", DefaultAddr),
		DatabaseURL: env.String(r, "DATABASE_URL", ""),
		RedisAddr:   env.String(r, "REDIS_ADDR", ""),
		AdminToken:  env.String(r, "ADMIN_TOKEN", ""),
		KeyPath:     env.String(r, "PUBLISHER_KEY_PATH", filepath.Join(xdg.ConfigHome, appDir, "publisher.key")),
		PolicyPath:  env.String(r, "REGISTRY_POLICY_PATH", filepath.Join(xdg.ConfigHome, appDir, "registry.json")),
		ExportDir:   env.String(r, "EXPORT_DIR", filepath.Join(xdg.DataHome, appDir, "oci")),
	}
	c.PreviousPublicKeys = keys.ParseKeyList(r.Getenv("PUBLISHER_PREVIOUS_PUBLIC_KEYS"))

	switch c.Env {
	case EnvProduction, EnvDevelopment, EnvTest:
	default:
		collect(fmt.Errorf("REGISTRY_ENV: unknown environment %q", c.Env))
	}

	var err error
	c.LogLevel, err = logging.ParseLevel(env.String(r, "LOG_LEVEL", "info"))
	collect(prefix("LOG_LEVEL", err))

	defaultFormat := logging.FormatJSON
	if c.Env == EnvDevelopment {
		defaultFormat = logging.FormatText
	}
	c.LogFormat, err = logging.ParseFormat(env.String(r, "LOG_FORMAT", defaultFormat.String()))
	collect(prefix("LOG_FORMAT", err))

	c.TrustProxy, err = env.Bool(r, "TRUST_PROXY", false)
	collect(err)
	c.PolicyTTL, err = env.Duration(r, "POLICY_TTL", policy.DefaultTTL)
	collect(err)
	if c.PolicyTTL <= 0 {
		collect(fmt.Errorf("POLICY_TTL: must be positive"))
	}
	c.AuditQueueSize, err = env.Int(r, "AUDIT_QUEUE_SIZE", audit.DefaultQueueSize)
	collect(err)
	if c.AuditQueueSize <= 0 {
		collect(fmt.Errorf("AUDIT_QUEUE_SIZE: must be positive"))
	}

	c.RateLimits.PublishSkill, err = rule(r, "RATE_LIMIT_PUBLISH_SKILL", DefaultPublishSkillLimit)
	collect(err)
	c.RateLimits.PublishVersion, err = rule(r, "RATE_LIMIT_PUBLISH_VERSION", DefaultPublishVersionLimit)
	collect(err)
	c.RateLimits.AdminLogin, err = rule(r, "RATE_LIMIT_ADMIN_LOGIN", DefaultAdminLoginLimit)
	collect(err)

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return c, nil
}

func rule(r env.Reader, key string, def ratelimit.Rule) (ratelimit.Rule, error) {
	v := env.String(r, key, "")
	if v == "" {
		return def, nil
	}
	parsed, err := ratelimit.ParseRule(v)
	if err != nil {
		return def, prefix(key, err)
	}
	return parsed, nil
}

func prefix(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", key, err)
}

// Development reports whether the registry runs in development mode, where
// the policy document is re-read on every request.
func (c *Config) Development() bool {
	return c.Env == EnvDevelopment
}

// SecureCookies reports whether session cookies carry the Secure attribute.
func (c *Config) SecureCookies() bool {
	return c.Env == EnvProduction
}

// Logger builds the process logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	return logging.New(
		logging.WithFormat(c.LogFormat),
		logging.WithLevel(c.LogLevel),
		logging.WithOutput(w),
	)
}
