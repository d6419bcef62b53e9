// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/stacklok/skills-registry/audit"
)

// Memory is an in-process Store. Data is lost on restart.
type Memory struct {
	mu       sync.RWMutex
	skills   map[string]*Skill // by slug
	byID     map[string]string // skill ID to slug
	versions map[string][]Version
	events   []audit.Entry
	seq      map[string]int // version ID to insertion order
	next     int
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		skills:   make(map[string]*Skill),
		byID:     make(map[string]string),
		versions: make(map[string][]Version),
		seq:      make(map[string]int),
	}
}

// FindSkill implements Store.
func (m *Memory) FindSkill(_ context.Context, slug string) (*Skill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.skills[slug]
	if !ok {
		return nil, ErrNotFound
	}
	out := m.cloneSkill(s)
	out.Versions = m.sortedVersions(s.ID)
	return &out, nil
}

// ListVersions implements Store.
func (m *Memory) ListVersions(_ context.Context, skillID string) ([]Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.byID[skillID]; !ok {
		return nil, ErrNotFound
	}
	return m.sortedVersions(skillID), nil
}

// FindVersion implements Store.
func (m *Memory) FindVersion(_ context.Context, slug, version string) (*Skill, *Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.skills[slug]
	if !ok {
		return nil, nil, ErrNotFound
	}
	for _, v := range m.versions[s.ID] {
		if v.Version == version {
			skill := m.cloneSkill(s)
			return &skill, &v, nil
		}
	}
	return nil, nil, ErrNotFound
}

// ListSkills implements Store.
func (m *Memory) ListSkills(_ context.Context, filter ListFilter) ([]Skill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Skill, 0, len(m.skills))
	for _, s := range m.skills {
		skill := m.cloneSkill(s)
		skill.Versions = m.sortedVersions(s.ID)
		if filter.Matches(&skill) {
			out = append(out, skill)
		}
	}

	slices.SortFunc(out, func(a, b Skill) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Slug, b.Slug)
	})
	return out, nil
}

// CreateSkill implements Store.
func (m *Memory) CreateSkill(_ context.Context, skill Skill, initial Version) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.skills[skill.Slug]; exists {
		return ErrConflict
	}
	if skill.ID == "" {
		skill.ID = uuid.NewString()
	}
	if skill.UpdatedAt.IsZero() {
		skill.UpdatedAt = skill.CreatedAt
	}
	skill.Versions = nil

	stored := m.cloneSkill(&skill)
	m.skills[skill.Slug] = &stored
	m.byID[skill.ID] = skill.Slug
	m.appendVersionLocked(skill.ID, initial)
	return nil
}

// AddVersion implements Store.
func (m *Memory) AddVersion(_ context.Context, skillID string, version Version) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	slug, ok := m.byID[skillID]
	if !ok {
		return ErrNotFound
	}
	for _, v := range m.versions[skillID] {
		if v.Version == version.Version {
			return ErrConflict
		}
	}

	m.appendVersionLocked(skillID, version)
	if s := m.skills[slug]; version.PublishedAt.After(s.UpdatedAt) {
		s.UpdatedAt = version.PublishedAt
	}
	return nil
}

// RecordAuditEvent implements audit.Sink.
func (m *Memory) RecordAuditEvent(_ context.Context, entry audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	m.events = append(m.events, entry)
	return nil
}

// ListAuditEvents implements Store.
func (m *Memory) ListAuditEvents(_ context.Context, limit int) ([]audit.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := slices.Clone(m.events)
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b audit.Entry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Ping implements Store.
func (*Memory) Ping(context.Context) error {
	return nil
}

// Close implements Store.
func (*Memory) Close() {}

func (m *Memory) appendVersionLocked(skillID string, v Version) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.SkillID = skillID
	m.versions[skillID] = append(m.versions[skillID], v)
	m.seq[v.ID] = m.next
	m.next++
}

// sortedVersions returns the versions of a skill newest first; versions
// published at the same instant keep reverse insertion order.
func (m *Memory) sortedVersions(skillID string) []Version {
	out := slices.Clone(m.versions[skillID])
	slices.SortFunc(out, func(a, b Version) int {
		if c := b.PublishedAt.Compare(a.PublishedAt); c != 0 {
			return c
		}
		return cmp.Compare(m.seq[b.ID], m.seq[a.ID])
	})
	return out
}

func (*Memory) cloneSkill(s *Skill) Skill {
	out := *s
	out.Tags = slices.Clone(s.Tags)
	out.Capabilities = slices.Clone(s.Capabilities)
	out.Versions = nil
	return out
}
