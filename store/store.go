// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package store persists skills, their versions and the audit log.
package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/stacklok/skills-registry/audit"
)

var (
	// ErrNotFound is returned when the requested skill or version does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a slug or a skill version already exists.
	ErrConflict = errors.New("conflict")
)

// Skill is a named collection of versions.
type Skill struct {
	ID                string
	Slug              string
	Title             string
	Description       string
	Tags              []string
	Capabilities      []string
	AuthorDisplayName string
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// Versions is populated by reads that return whole skills, newest first.
	Versions []Version
}

// Version is one published, immutable revision of a skill.
type Version struct {
	ID              string
	SkillID         string
	Version         string
	ContentMarkdown string
	ContentHash     string
	Signature       string
	PublicKey       string
	PublishedAt     time.Time
}

// ListFilter narrows ListSkills. Zero values match everything.
type ListFilter struct {
	// Query matches title, description or any version content, case-insensitively.
	// Callers applying visibility rules must re-check content matches.
	Query string
	// Tags matches skills sharing at least one tag.
	Tags []string
	// Capabilities matches skills sharing at least one capability.
	Capabilities []string
}

// Store is the persistence contract of the registry. Errors other than
// ErrNotFound and ErrConflict mean the storage is unavailable.
type Store interface {
	audit.Sink

	// FindSkill returns the skill with its versions.
	FindSkill(ctx context.Context, slug string) (*Skill, error)
	// ListVersions returns the versions of a skill, newest first.
	ListVersions(ctx context.Context, skillID string) ([]Version, error)
	// FindVersion returns one version together with its skill. The skill's
	// Versions field is not populated.
	FindVersion(ctx context.Context, slug, version string) (*Skill, *Version, error)
	// ListSkills returns matching skills with their versions, newest first.
	ListSkills(ctx context.Context, filter ListFilter) ([]Skill, error)
	// CreateSkill stores a new skill together with its first version.
	CreateSkill(ctx context.Context, skill Skill, initial Version) error
	// AddVersion stores a further version of an existing skill.
	AddVersion(ctx context.Context, skillID string, version Version) error
	// ListAuditEvents returns the most recent audit entries, newest first.
	ListAuditEvents(ctx context.Context, limit int) ([]audit.Entry, error)
	// Ping reports whether the storage is reachable.
	Ping(ctx context.Context) error
	// Close releases the storage resources.
	Close()
}

// Matches reports whether s satisfies f. Versions of s are searched for Query.
func (f ListFilter) Matches(s *Skill) bool {
	if len(f.Tags) > 0 && !sharesAny(s.Tags, f.Tags) {
		return false
	}
	if len(f.Capabilities) > 0 && !sharesAny(s.Capabilities, f.Capabilities) {
		return false
	}
	if f.Query == "" {
		return true
	}

	q := strings.ToLower(f.Query)
	if strings.Contains(strings.ToLower(s.Title), q) || strings.Contains(strings.ToLower(s.Description), q) {
		return true
	}
	return slices.ContainsFunc(s.Versions, func(v Version) bool {
		return strings.Contains(strings.ToLower(v.ContentMarkdown), q)
	})
}

func sharesAny(have, want []string) bool {
	return slices.ContainsFunc(want, func(w string) bool {
		return slices.Contains(have, w)
	})
}
