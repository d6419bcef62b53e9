// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/stacklok/skills-registry/digest"
)

// DefaultTTL is how long a loaded policy is served before the source is re-read.
const DefaultTTL = 60 * time.Second

const cacheKey = "policy"

// Snapshot is a policy together with the identity of the bytes it came from.
type Snapshot struct {
	Policy *Policy
	// Hash is the hex SHA-256 of the raw document, or of the JSON encoding of
	// the defaults when no document could be read.
	Hash     string
	LoadedAt time.Time
	// Source is the file the policy was read from, empty for defaults.
	Source string
}

// Loader serves the current policy from a file, re-reading it after a TTL.
// It is safe for concurrent use; concurrent reloads share one read.
type Loader struct {
	path         string
	ttl          time.Duration
	alwaysReload bool
	logger       *slog.Logger
	onReload     func(Snapshot, error)

	cache *gocache.Cache
	group singleflight.Group
	last  atomic.Pointer[Snapshot]
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithTTL sets how long a loaded policy is served. Non-positive values are ignored.
func WithTTL(ttl time.Duration) LoaderOption {
	return func(l *Loader) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithAlwaysReload makes every call to Current re-read the source.
// Used in development.
func WithAlwaysReload(v bool) LoaderOption {
	return func(l *Loader) {
		l.alwaysReload = v
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithReloadHook registers fn to be called after every read of the source.
// err is non-nil when the document could not be used.
func WithReloadHook(fn func(Snapshot, error)) LoaderOption {
	return func(l *Loader) {
		l.onReload = fn
	}
}

// NewLoader creates a Loader for the document at path. An empty path serves
// the defaults.
func NewLoader(path string, opts ...LoaderOption) *Loader {
	l := &Loader{
		path:   path,
		ttl:    DefaultTTL,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.cache = gocache.New(l.ttl, 2*l.ttl)
	return l
}

// Current returns the policy in effect, reloading it if the cached copy is stale.
func (l *Loader) Current() Snapshot {
	if !l.alwaysReload {
		if v, ok := l.cache.Get(cacheKey); ok {
			return v.(Snapshot)
		}
	}

	v, _, _ := l.group.Do(cacheKey, func() (any, error) {
		snap := l.load()
		l.cache.Set(cacheKey, snap, l.ttl)
		return snap, nil
	})
	return v.(Snapshot)
}

// Invalidate forces the next call to Current to re-read the source.
func (l *Loader) Invalidate() {
	l.cache.Delete(cacheKey)
}

func (l *Loader) load() Snapshot {
	snap, err := l.read()
	if err == nil {
		l.last.Store(&snap)
		l.notify(snap, nil)
		return snap
	}

	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Debug("policy file not found, using defaults", "path", l.path)
		snap = defaultSnapshot()
		l.last.Store(&snap)
		l.notify(snap, nil)
		return snap
	}

	if prev := l.last.Load(); prev != nil {
		l.logger.Error("failed to reload policy, keeping previous policy",
			"path", l.path, "hash", prev.Hash, "error", err)
		l.notify(*prev, err)
		return *prev
	}

	l.logger.Error("failed to load policy, using defaults", "path", l.path, "error", err)
	snap = defaultSnapshot()
	l.notify(snap, err)
	return snap
}

func (l *Loader) read() (Snapshot, error) {
	if l.path == "" {
		return defaultSnapshot(), nil
	}

	raw, err := os.ReadFile(l.path)
	if err != nil {
		return Snapshot{}, err
	}

	p, err := Parse(raw)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Policy:   p,
		Hash:     digest.Hex(raw),
		LoadedAt: time.Now(),
		Source:   l.path,
	}, nil
}

func (l *Loader) notify(s Snapshot, err error) {
	if l.onReload != nil {
		l.onReload(s, err)
	}
}

func defaultSnapshot() Snapshot {
	p := Default()
	raw, _ := json.Marshal(p)
	return Snapshot{
		Policy:   p,
		Hash:     digest.Hex(raw),
		LoadedAt: time.Now(),
	}
}

// DefaultHash is the hash reported when the defaults are in effect.
func DefaultHash() string {
	return defaultSnapshot().Hash
}
