// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/stacklok/skills-registry/audit"
	"github.com/stacklok/skills-registry/policy"
	"github.com/stacklok/skills-registry/store"
	"github.com/stacklok/skills-registry/verify"
)

// Pagination bounds.
const (
	DefaultLimit      = 20
	MaxLimit          = 100
	DefaultAuditLimit = 100
	MaxAuditLimit     = 500
)

// gate applies one policy snapshot and one trusted key set to every record
// of a request, so a single response never mixes two policies.
type gate struct {
	policy  *policy.Policy
	trusted map[string]struct{}
	s       *Service
}

// visibleVersion pairs a stored version with its verdict.
type visibleVersion struct {
	version store.Version
	verdict verify.Verdict
}

func (s *Service) gate(ctx context.Context) (*gate, error) {
	trusted, err := s.keys.TrustedPublicKeys()
	if err != nil {
		s.logger.ErrorContext(ctx, "trusted keys unavailable", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSigningUnavailable, err)
	}
	return &gate{policy: s.policies.Current().Policy, trusted: trusted, s: s}, nil
}

// versions returns the visible versions of sk, keeping the input order.
// It returns nil when the skill itself is hidden.
func (g *gate) versions(sk *store.Skill, versions []store.Version) []visibleVersion {
	if !g.policy.CollectionVisible(sk.Slug, sk.Tags) {
		return nil
	}
	var out []visibleVersion
	for _, v := range versions {
		if d, ok := g.version(sk, v); ok {
			out = append(out, visibleVersion{version: v, verdict: d})
		}
	}
	return out
}

func (g *gate) version(sk *store.Skill, v store.Version) (verify.Verdict, bool) {
	d := g.policy.EvaluateFor(policy.Subject{
		Slug:         sk.Slug,
		Tags:         sk.Tags,
		Capabilities: sk.Capabilities,
		Version:      v.Version,
	}, record(v), g.trusted)
	if !d.Visible {
		g.s.metrics.Hidden(string(d.Reason))
		if d.RuleErr != nil {
			g.s.logger.Warn("policy rule failed", "rule", d.Rule, "slug", sk.Slug, "version", v.Version, "error", d.RuleErr)
		}
		return verify.Verdict{}, false
	}
	return d.Verdict, true
}

func record(v store.Version) verify.Record {
	return verify.Record{
		Content:         v.ContentMarkdown,
		Digest:          v.ContentHash,
		Signature:       v.Signature,
		SignerPublicKey: v.PublicKey,
	}
}

// ListSkills returns visible skills matching opts, newest first, each with
// its latest visible version.
func (s *Service) ListSkills(ctx context.Context, opts ListOptions) ([]SkillListItem, Pagination, error) {
	limit, offset := NormalizePage(opts.Limit, opts.Offset)

	g, err := s.gate(ctx)
	if err != nil {
		return nil, Pagination{}, err
	}
	skills, err := s.store.ListSkills(ctx, store.ListFilter{
		Query:        opts.Query,
		Tags:         trimList(opts.Tags),
		Capabilities: trimList(opts.Capabilities),
	})
	if err != nil {
		return nil, Pagination{}, storageError("list skills", err)
	}

	items := make([]SkillListItem, 0, len(skills))
	for i := range skills {
		sk := &skills[i]
		visible := g.versions(sk, sk.Versions)
		if len(visible) == 0 || !matchesQuery(sk, visible, opts.Query) {
			continue
		}
		latest := visible[0].version
		items = append(items, SkillListItem{
			Slug:              sk.Slug,
			Title:             sk.Title,
			Description:       sk.Description,
			Tags:              nonNil(sk.Tags),
			Capabilities:      nonNil(sk.Capabilities),
			LatestVersion:     &latest.Version,
			LatestPublishedAt: &latest.PublishedAt,
		})
	}

	page := paginate(items, limit, offset)
	return page, Pagination{Limit: limit, Offset: offset, Returned: len(page), Total: len(items)}, nil
}

// GetSkill returns a visible skill with its visible versions.
func (s *Service) GetSkill(ctx context.Context, slug string) (*SkillDetail, error) {
	sk, visible, err := s.visibleSkill(ctx, slug)
	if err != nil {
		return nil, err
	}
	return &SkillDetail{SkillInfo: skillInfo(sk), Versions: summaries(visible)}, nil
}

// ListVersions returns the visible versions of a visible skill.
func (s *Service) ListVersions(ctx context.Context, slug string) ([]VersionSummary, error) {
	_, visible, err := s.visibleSkill(ctx, slug)
	if err != nil {
		return nil, err
	}
	return summaries(visible), nil
}

// GetVersion returns one visible version with its content and signature.
func (s *Service) GetVersion(ctx context.Context, slug, version string) (*VersionDetail, error) {
	g, err := s.gate(ctx)
	if err != nil {
		return nil, err
	}
	sk, v, err := s.store.FindVersion(ctx, slug, version)
	if err != nil {
		return nil, storageError("find version", err)
	}
	if !g.policy.CollectionVisible(sk.Slug, sk.Tags) {
		return nil, ErrNotFound
	}
	verdict, ok := g.version(sk, *v)
	if !ok {
		return nil, ErrNotFound
	}

	return &VersionDetail{
		VersionSummary:  summary(*v, verdict),
		ContentMarkdown: v.ContentMarkdown,
		Signature:       v.Signature,
		PublicKey:       v.PublicKey,
		Provenance:      provenance(*v, verdict),
	}, nil
}

// Export returns a page of visible skills with their visible versions and content.
func (s *Service) Export(ctx context.Context, limit, offset int) ([]ExportedSkill, Pagination, error) {
	limit, offset = NormalizePage(limit, offset)
	all, err := s.ExportAll(ctx)
	if err != nil {
		return nil, Pagination{}, err
	}
	page := paginate(all, limit, offset)
	return page, Pagination{Limit: limit, Offset: offset, Returned: len(page), Total: len(all)}, nil
}

// ExportAll returns every visible skill with its visible versions and content.
func (s *Service) ExportAll(ctx context.Context) ([]ExportedSkill, error) {
	g, err := s.gate(ctx)
	if err != nil {
		return nil, err
	}
	skills, err := s.store.ListSkills(ctx, store.ListFilter{})
	if err != nil {
		return nil, storageError("list skills", err)
	}

	out := make([]ExportedSkill, 0, len(skills))
	for i := range skills {
		sk := &skills[i]
		visible := g.versions(sk, sk.Versions)
		if len(visible) == 0 {
			continue
		}
		exp := ExportedSkill{SkillInfo: skillInfo(sk), Versions: make([]ExportedVersion, 0, len(visible))}
		for _, vv := range visible {
			exp.Versions = append(exp.Versions, ExportedVersion{
				VersionSummary:  summary(vv.version, vv.verdict),
				ContentMarkdown: vv.version.ContentMarkdown,
				Signature:       vv.version.Signature,
				PublicKey:       vv.version.PublicKey,
			})
		}
		out = append(out, exp)
	}
	return out, nil
}

// AuditLog returns the most recent audit entries.
func (s *Service) AuditLog(ctx context.Context, limit int) ([]audit.Entry, error) {
	switch {
	case limit <= 0:
		limit = DefaultAuditLimit
	case limit > MaxAuditLimit:
		limit = MaxAuditLimit
	}
	entries, err := s.store.ListAuditEvents(ctx, limit)
	if err != nil {
		return nil, storageError("list audit events", err)
	}
	return entries, nil
}

func (s *Service) visibleSkill(ctx context.Context, slug string) (*store.Skill, []visibleVersion, error) {
	g, err := s.gate(ctx)
	if err != nil {
		return nil, nil, err
	}
	sk, err := s.store.FindSkill(ctx, slug)
	if err != nil {
		return nil, nil, storageError("find skill", err)
	}
	visible := g.versions(sk, sk.Versions)
	if len(visible) == 0 {
		return nil, nil, ErrNotFound
	}
	return sk, visible, nil
}

// matchesQuery re-checks the store's text match against visible versions
// only, so hidden content never makes a skill discoverable.
func matchesQuery(sk *store.Skill, visible []visibleVersion, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(sk.Title), q) || strings.Contains(strings.ToLower(sk.Description), q) {
		return true
	}
	return slices.ContainsFunc(visible, func(vv visibleVersion) bool {
		return strings.Contains(strings.ToLower(vv.version.ContentMarkdown), q)
	})
}

// NormalizePage applies the default and maximum limit and clamps the offset.
func NormalizePage(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}

func skillInfo(sk *store.Skill) SkillInfo {
	return SkillInfo{
		ID:                sk.ID,
		Slug:              sk.Slug,
		Title:             sk.Title,
		Description:       sk.Description,
		Tags:              nonNil(sk.Tags),
		Capabilities:      nonNil(sk.Capabilities),
		AuthorDisplayName: sk.AuthorDisplayName,
		CreatedAt:         sk.CreatedAt,
	}
}

func summary(v store.Version, verdict verify.Verdict) VersionSummary {
	return VersionSummary{
		Version:      v.Version,
		PublishedAt:  v.PublishedAt,
		ContentHash:  v.ContentHash,
		Verification: verdict,
	}
}

func summaries(vs []visibleVersion) []VersionSummary {
	out := make([]VersionSummary, len(vs))
	for i, vv := range vs {
		out[i] = summary(vv.version, vv.verdict)
	}
	return out
}

func provenance(v store.Version, verdict verify.Verdict) Provenance {
	return Provenance{
		Signed:         v.Signature != "" && v.PublicKey != "",
		HashValid:      verdict.DigestValid,
		SignatureValid: verdict.SignatureValid,
		PublicKey:      v.PublicKey,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
