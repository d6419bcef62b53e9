// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/stacklok/skills-registry/audit"
	"github.com/stacklok/skills-registry/digest"
	"github.com/stacklok/skills-registry/signature"
	"github.com/stacklok/skills-registry/store"
	"github.com/stacklok/skills-registry/validation/skill"
	"github.com/stacklok/skills-registry/verify"
)

// Publish operation names used for metrics and rate limiting.
const (
	OpPublishSkill   = "publish_skill"
	OpPublishVersion = "publish_version"
)

// signed is the output of the digest, sign and self-check pipeline.
type signed struct {
	hash      string
	signature string
	publicKey string
	verdict   verify.Verdict
}

// PublishSkill creates a skill together with its first signed version.
func (s *Service) PublishSkill(ctx context.Context, in PublishSkillInput, caller Caller) (*PublishedVersion, error) {
	res, err := s.publishSkill(ctx, in, caller)
	s.metrics.Publish(OpPublishSkill, resultLabel(err))
	return res, err
}

func (s *Service) publishSkill(ctx context.Context, in PublishSkillInput, caller Caller) (*PublishedVersion, error) {
	in.Tags = trimList(in.Tags)
	in.Capabilities = trimList(in.Capabilities)

	var errs skill.Errors
	errs.Check("slug", skill.ValidateSlug(in.Slug))
	errs.Check("title", skill.ValidateTitle(in.Title))
	errs.Check("description", skill.ValidateDescription(in.Description))
	errs.Check("tags", skill.ValidateTags(in.Tags))
	errs.Check("capabilities", skill.ValidateCapabilities(in.Capabilities))
	errs.Check("authorDisplayName", skill.ValidateAuthor(in.AuthorDisplayName))
	errs.Check("version", skill.ValidateVersion(in.Version))
	errs.Check("markdown", skill.ValidateMarkdown(in.Markdown))
	if err := errs.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	_, err := s.store.FindSkill(ctx, in.Slug)
	switch {
	case err == nil:
		return nil, fmt.Errorf("skill %q: %w", in.Slug, ErrConflict)
	case !errors.Is(err, store.ErrNotFound):
		return nil, storageError("find skill", err)
	}

	sig, err := s.sign(ctx, in.Markdown)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sk := store.Skill{
		ID:                s.newID(),
		Slug:              in.Slug,
		Title:             in.Title,
		Description:       in.Description,
		Tags:              in.Tags,
		Capabilities:      in.Capabilities,
		AuthorDisplayName: in.AuthorDisplayName,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	v := s.newVersion(sk.ID, in.Version, in.Markdown, sig, now)
	if err := s.store.CreateSkill(ctx, sk, v); err != nil {
		return nil, storageError("create skill", err)
	}

	s.record(ctx, audit.ActionCreateSkill, sk.Slug, v, caller)
	s.logger.InfoContext(ctx, "skill published", "slug", sk.Slug, "version", v.Version, "content_hash", v.ContentHash)

	return published(sk, v, sig), nil
}

// PublishVersion adds a signed version to an existing skill.
func (s *Service) PublishVersion(ctx context.Context, slug string, in PublishVersionInput, caller Caller) (*PublishedVersion, error) {
	res, err := s.publishVersion(ctx, slug, in, caller)
	s.metrics.Publish(OpPublishVersion, resultLabel(err))
	return res, err
}

func (s *Service) publishVersion(ctx context.Context, slug string, in PublishVersionInput, caller Caller) (*PublishedVersion, error) {
	var errs skill.Errors
	errs.Check("slug", skill.ValidateSlug(slug))
	errs.Check("version", skill.ValidateVersion(in.Version))
	errs.Check("markdown", skill.ValidateMarkdown(in.Markdown))
	if err := errs.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	sk, err := s.store.FindSkill(ctx, slug)
	if err != nil {
		return nil, storageError("find skill", err)
	}
	if slices.ContainsFunc(sk.Versions, func(v store.Version) bool { return v.Version == in.Version }) {
		return nil, fmt.Errorf("skill %q version %q: %w", slug, in.Version, ErrConflict)
	}

	sig, err := s.sign(ctx, in.Markdown)
	if err != nil {
		return nil, err
	}

	v := s.newVersion(sk.ID, in.Version, in.Markdown, sig, s.now().UTC())
	if err := s.store.AddVersion(ctx, sk.ID, v); err != nil {
		return nil, storageError("add version", err)
	}

	s.record(ctx, audit.ActionAddVersion, slug, v, caller)
	s.logger.InfoContext(ctx, "version published", "slug", slug, "version", v.Version, "content_hash", v.ContentHash)

	sk.Versions = nil
	return published(*sk, v, sig), nil
}

// sign digests markdown, signs the digest with the active key and checks the
// result verifies against that key alone.
func (s *Service) sign(ctx context.Context, markdown string) (signed, error) {
	id, err := s.keys.EnsureActiveIdentity()
	if err != nil {
		s.logger.ErrorContext(ctx, "publisher key unavailable", "error", err)
		return signed{}, fmt.Errorf("%w: %w", ErrSigningUnavailable, err)
	}

	sum := digest.Sum([]byte(markdown))
	sig, err := signature.Sign(sum[:], id.PrivateKey)
	if err != nil {
		s.logger.ErrorContext(ctx, "signing failed", "error", err)
		return signed{}, fmt.Errorf("%w: %w", ErrSigningUnavailable, err)
	}

	hash := digest.Hex([]byte(markdown))
	verdict := verify.Verify(markdown, hash, sig, id.PublicKey, map[string]struct{}{id.PublicKey: {}})
	if !verdict.Verified {
		s.logger.ErrorContext(ctx, "signature self-check failed",
			"hash_valid", verdict.DigestValid, "signature_valid", verdict.SignatureValid)
		return signed{}, ErrSelfCheckFailed
	}

	return signed{hash: hash, signature: sig, publicKey: id.PublicKey, verdict: verdict}, nil
}

func (s *Service) newVersion(skillID, version, markdown string, sig signed, now time.Time) store.Version {
	return store.Version{
		ID:              s.newID(),
		SkillID:         skillID,
		Version:         version,
		ContentMarkdown: markdown,
		ContentHash:     sig.hash,
		Signature:       sig.signature,
		PublicKey:       sig.publicKey,
		PublishedAt:     now,
	}
}

func (s *Service) record(ctx context.Context, action audit.Action, slug string, v store.Version, caller Caller) {
	actor := caller.Actor
	if actor == "" {
		actor = "admin"
	}
	s.audit.Record(ctx, audit.Entry{
		Action:        action,
		Slug:          slug,
		Version:       v.Version,
		Digest:        v.ContentHash,
		Actor:         actor,
		CallerAddress: caller.Address,
		CallerAgent:   caller.Agent,
	})
}

func published(sk store.Skill, v store.Version, sig signed) *PublishedVersion {
	return &PublishedVersion{
		Skill: skillInfo(&sk),
		Version: PublishedDetail{
			VersionSummary: VersionSummary{
				Version:      v.Version,
				PublishedAt:  v.PublishedAt,
				ContentHash:  v.ContentHash,
				Verification: sig.verdict,
			},
			Signature: v.Signature,
			PublicKey: v.PublicKey,
			Provenance: Provenance{
				Signed:         true,
				HashValid:      sig.verdict.DigestValid,
				SignatureValid: sig.verdict.SignatureValid,
				PublicKey:      v.PublicKey,
			},
		},
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrSigningUnavailable), errors.Is(err, ErrSelfCheckFailed):
		return "signing_error"
	default:
		return "storage_error"
	}
}

func trimList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
