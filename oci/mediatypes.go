// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oci

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ArtifactTypeSkill identifies skill version manifests.
const ArtifactTypeSkill = "dev.skills-registry.skill.v1"

// Media types of the blobs referenced by a skill manifest.
const (
	MediaTypeSkillConfig  = "application/vnd.skills-registry.skill.config.v1+json"
	MediaTypeSkillContent = "text/markdown"
)

// ContentFileName titles the content layer.
const ContentFileName = "SKILL.md"

// Annotation keys on skill manifests.
const (
	AnnotationSlug      = "dev.skills-registry.skill.slug"
	AnnotationVersion   = "dev.skills-registry.skill.version"
	AnnotationDigest    = "dev.skills-registry.skill.digest"
	AnnotationSignature = "dev.skills-registry.skill.signature"
	AnnotationPublicKey = "dev.skills-registry.skill.publicKey"
)

// SkillConfig is the config blob of a skill manifest.
type SkillConfig struct {
	Slug              string    `json:"slug"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Tags              []string  `json:"tags"`
	Capabilities      []string  `json:"capabilities"`
	AuthorDisplayName string    `json:"authorDisplayName"`
	Version           string    `json:"version"`
	PublishedAt       time.Time `json:"publishedAt"`
}

// ParseSkillConfig decodes a config blob.
func ParseSkillConfig(data []byte) (*SkillConfig, error) {
	var cfg SkillConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing skill config: %w", err)
	}
	if cfg.Slug == "" || cfg.Version == "" {
		return nil, fmt.Errorf("skill config requires slug and version")
	}
	return &cfg, nil
}

var tagPattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9._-]{0,127}$`)

// Tag returns the layout tag of a skill version. Semver build metadata uses
// '+', which OCI tags do not allow, so it is written as '_'.
func Tag(slug, version string) (string, error) {
	tag := slug + "-" + strings.ReplaceAll(version, "+", "_")
	if !tagPattern.MatchString(tag) {
		return "", fmt.Errorf("invalid tag %q", tag)
	}
	return tag, nil
}
