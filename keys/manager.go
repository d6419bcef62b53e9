// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/stacklok/skills-registry/signature"
)

// ErrCorruptKeyFile is returned when the persisted identity exists but cannot be parsed.
var ErrCorruptKeyFile = errors.New("corrupt publisher key file")

// Manager owns the active signing identity and the trusted public key set.
// It is safe for concurrent use.
type Manager struct {
	path     string
	previous []string
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	identity *signature.Identity
	// retired holds public keys rotated out by this process.
	retired []string
}

// Option configures a Manager.
type Option func(*Manager)

// WithPreviousKeys sets the previously active public keys that remain trusted
// for verification. Blank entries are ignored.
func WithPreviousKeys(keys []string) Option {
	return func(m *Manager) {
		m.previous = normalizeKeys(keys)
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates a Manager for the key file at path.
func NewManager(path string, opts ...Option) *Manager {
	m := &Manager{
		path:   path,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, k := range m.previous {
		if err := signature.ValidatePublicKey(k); err != nil {
			m.logger.Warn("previous publisher key is not a valid Ed25519 key; signatures from it will never verify",
				"key", k)
		}
	}
	return m
}

// Path returns the key file location.
func (m *Manager) Path() string {
	return m.path
}

// EnsureActiveIdentity returns the active identity, generating and persisting
// one on first use.
func (m *Manager) EnsureActiveIdentity() (signature.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ensureLocked()
}

// ActivePublicKey returns the public key of the active identity.
func (m *Manager) ActivePublicKey() (string, error) {
	id, err := m.EnsureActiveIdentity()
	if err != nil {
		return "", err
	}
	return id.PublicKey, nil
}

// TrustedPublicKeys returns the active public key together with every
// previously trusted public key.
func (m *Manager) TrustedPublicKeys() (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.ensureLocked()
	if err != nil {
		return nil, err
	}

	trusted := make(map[string]struct{}, 1+len(m.previous)+len(m.retired))
	trusted[id.PublicKey] = struct{}{}
	for _, k := range m.previous {
		trusted[k] = struct{}{}
	}
	for _, k := range m.retired {
		trusted[k] = struct{}{}
	}
	return trusted, nil
}

// Reload drops the cached identity so the next call re-reads the key file.
func (m *Manager) Reload() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.identity = nil
}

// Rotate replaces the active identity with a freshly generated one and
// returns the public key it replaced. The replaced key stays trusted for the
// lifetime of this Manager; add it to the configured previous keys to keep
// it trusted across restarts.
func (m *Manager) Rotate() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.ensureLocked()
	if err != nil {
		return "", err
	}

	next, err := signature.GenerateIdentity()
	if err != nil {
		return "", err
	}
	data, err := encodeKeyFile(next, m.now())
	if err != nil {
		return "", err
	}
	if err := replaceAtomic(m.path, data); err != nil {
		return "", err
	}

	m.identity = &next
	m.retired = append(m.retired, current.PublicKey)
	m.logger.Info("rotated publisher signing key",
		"path", m.path,
		"previous_public_key", current.PublicKey,
		"public_key", next.PublicKey)

	return current.PublicKey, nil
}

func (m *Manager) ensureLocked() (signature.Identity, error) {
	if m.identity != nil {
		return *m.identity, nil
	}

	id, err := m.loadOrCreate()
	if err != nil {
		if errors.Is(err, ErrCorruptKeyFile) {
			m.logger.Error("publisher key file cannot be parsed; refusing to sign or verify", "path", m.path, "error", err)
		}
		return signature.Identity{}, err
	}

	m.identity = &id
	return id, nil
}

func (m *Manager) loadOrCreate() (signature.Identity, error) {
	id, err := readKeyFile(m.path)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return signature.Identity{}, fmt.Errorf("loading publisher key: %w", err)
	}

	fresh, err := signature.GenerateIdentity()
	if err != nil {
		return signature.Identity{}, err
	}
	data, err := encodeKeyFile(fresh, m.now())
	if err != nil {
		return signature.Identity{}, err
	}

	if err := createExclusive(m.path, data); err != nil {
		if !errors.Is(err, fs.ErrExist) {
			return signature.Identity{}, err
		}
		// Lost the race: another writer created the file first.
		m.logger.Debug("publisher key created concurrently; using existing key", "path", m.path)
		id, err := readKeyFile(m.path)
		if err != nil {
			return signature.Identity{}, fmt.Errorf("loading publisher key: %w", err)
		}
		return id, nil
	}

	m.logger.Info("generated publisher signing key", "path", m.path, "public_key", fresh.PublicKey)
	return fresh, nil
}

// ParseKeyList splits a comma-separated list of public keys.
func ParseKeyList(s string) []string {
	return normalizeKeys(strings.Split(s, ","))
}

func normalizeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
