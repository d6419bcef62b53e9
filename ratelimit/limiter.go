// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit implements a fixed-window request limiter with pluggable
// bucket storage.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Store holds the per-key counters. Increment must be atomic per key: it
// starts a new window of length window when none exists or the current one
// has ended at now, otherwise it bumps the counter.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration, now time.Time) (count int64, resetAt time.Time, err error)
}

// Result is the outcome of an admission check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Rule is a ceiling of Limit requests per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// String formats r as "<limit>/<window>".
func (r Rule) String() string {
	return strconv.Itoa(r.Limit) + "/" + r.Window.String()
}

// ErrInvalidRule is returned by ParseRule for malformed input.
var ErrInvalidRule = errors.New("invalid rate limit rule")

// ParseRule parses "<limit>/<window>", for example "60/1m" or "10/5m".
func ParseRule(s string) (Rule, error) {
	limitPart, windowPart, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return Rule{}, fmt.Errorf("%w: %q: expected <limit>/<window>", ErrInvalidRule, s)
	}

	limit, err := strconv.Atoi(strings.TrimSpace(limitPart))
	if err != nil || limit <= 0 {
		return Rule{}, fmt.Errorf("%w: %q: limit must be a positive integer", ErrInvalidRule, s)
	}

	window, err := time.ParseDuration(strings.TrimSpace(windowPart))
	if err != nil || window <= 0 {
		return Rule{}, fmt.Errorf("%w: %q: window must be a positive duration", ErrInvalidRule, s)
	}

	return Rule{Limit: limit, Window: window}, nil
}

// Key builds the bucket key for an operation performed by a caller.
func Key(operation, caller string) string {
	return operation + ":" + caller
}

// Limiter admits or rejects requests per key.
type Limiter struct {
	store Store
}

// New creates a Limiter over store.
func New(store Store) *Limiter {
	return &Limiter{store: store}
}

// Admit counts one request for key and reports whether it is within limit
// for the current window.
func (l *Limiter) Admit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	count, resetAt, err := l.store.Increment(ctx, key, window, now)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit store: %w", err)
	}

	remaining := int64(limit) - count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: int(remaining),
		ResetAt:   resetAt,
	}, nil
}

// AdmitRule is Admit with the limit and window taken from r.
func (l *Limiter) AdmitRule(ctx context.Context, key string, r Rule, now time.Time) (Result, error) {
	return l.Admit(ctx, key, r.Limit, r.Window, now)
}
