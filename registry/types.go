// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"time"

	"github.com/stacklok/skills-registry/policy"
	"github.com/stacklok/skills-registry/verify"
)

// Caller identifies who performed a write.
type Caller struct {
	Actor   string
	Address string
	Agent   string
}

// PublishSkillInput is the submission creating a skill with its first version.
type PublishSkillInput struct {
	Slug              string   `json:"slug"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Tags              []string `json:"tags"`
	Capabilities      []string `json:"capabilities"`
	AuthorDisplayName string   `json:"authorDisplayName"`
	Version           string   `json:"version"`
	Markdown          string   `json:"markdown"`
}

// PublishVersionInput is the submission adding a version to a skill.
type PublishVersionInput struct {
	Version  string `json:"version"`
	Markdown string `json:"markdown"`
}

// Provenance describes who signed a version and whether it checks out.
type Provenance struct {
	Signed         bool   `json:"signed"`
	HashValid      bool   `json:"hashValid"`
	SignatureValid bool   `json:"signatureValid"`
	PublicKey      string `json:"publicKey,omitempty"`
}

// SkillInfo is the skill-level metadata.
type SkillInfo struct {
	ID                string    `json:"id"`
	Slug              string    `json:"slug"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Tags              []string  `json:"tags"`
	Capabilities      []string  `json:"capabilities"`
	AuthorDisplayName string    `json:"authorDisplayName"`
	CreatedAt         time.Time `json:"createdAt"`
}

// SkillListItem is one entry of a skill listing.
type SkillListItem struct {
	Slug              string     `json:"slug"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Tags              []string   `json:"tags"`
	Capabilities      []string   `json:"capabilities"`
	LatestVersion     *string    `json:"latestVersion"`
	LatestPublishedAt *time.Time `json:"latestPublishedAt"`
}

// VersionSummary is a version without its content.
type VersionSummary struct {
	Version      string         `json:"version"`
	PublishedAt  time.Time      `json:"publishedAt"`
	ContentHash  string         `json:"contentHash"`
	Verification verify.Verdict `json:"verification"`
}

// SkillDetail is a skill with its visible versions, newest first.
type SkillDetail struct {
	SkillInfo
	Versions []VersionSummary `json:"versions"`
}

// VersionDetail is a single version with content and signature material.
type VersionDetail struct {
	VersionSummary
	ContentMarkdown string     `json:"contentMarkdown"`
	Signature       string     `json:"signature"`
	PublicKey       string     `json:"publicKey"`
	Provenance      Provenance `json:"provenance"`
}

// PublishedVersion is the result of a successful publish.
type PublishedVersion struct {
	Skill   SkillInfo       `json:"skill"`
	Version PublishedDetail `json:"version"`
}

// PublishedDetail describes the version that was just stored.
type PublishedDetail struct {
	VersionSummary
	Signature  string     `json:"signature"`
	PublicKey  string     `json:"publicKey"`
	Provenance Provenance `json:"provenance"`
}

// ExportedSkill is a visible skill with its visible versions and content.
type ExportedSkill struct {
	SkillInfo
	Versions []ExportedVersion `json:"versions"`
}

// ExportedVersion is one version in an export.
type ExportedVersion struct {
	VersionSummary
	ContentMarkdown string `json:"contentMarkdown"`
	Signature       string `json:"signature"`
	PublicKey       string `json:"publicKey"`
}

// ListOptions selects and pages a skill listing.
type ListOptions struct {
	Query        string
	Tags         []string
	Capabilities []string
	Limit        int
	Offset       int
}

// Pagination describes the page returned by a listing.
type Pagination struct {
	Limit    int `json:"limit"`
	Offset   int `json:"offset"`
	Returned int `json:"returned"`
	Total    int `json:"total"`
}

// Meta describes the registry and the policy in effect.
type Meta struct {
	Registry MetaRegistry `json:"registry"`
	Policy   MetaPolicy   `json:"policy"`
	Server   MetaServer   `json:"server"`
	Time     time.Time    `json:"time"`
}

// MetaRegistry names the registry.
type MetaRegistry struct {
	Name string `json:"name"`
}

// MetaPolicy exposes the active policy and the hash of its source bytes.
type MetaPolicy struct {
	Hash     string         `json:"hash"`
	Active   *policy.Policy `json:"active"`
	LoadedAt time.Time      `json:"loadedAt"`
}

// MetaServer identifies the running build.
type MetaServer struct {
	Version string `json:"version"`
}

// Health is the liveness report.
type Health struct {
	OK   bool      `json:"ok"`
	DB   bool      `json:"db"`
	Time time.Time `json:"time"`
}
