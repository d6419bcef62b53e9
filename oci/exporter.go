// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oci

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	specs "github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	contentdigest "github.com/stacklok/skills-registry/digest"
	"github.com/stacklok/skills-registry/registry"
)

// Exported describes one artifact written by Export.
type Exported struct {
	Slug     string
	Version  string
	Tag      string
	Manifest ocispec.Descriptor
}

// Skipped describes a version Export left out because its content no
// longer matches the recorded digest.
type Skipped struct {
	Slug     string
	Version  string
	Recorded string
	Actual   string
}

// Report is the outcome of one Export run.
type Report struct {
	Exported []Exported
	Skipped  []Skipped
}

// Exporter writes skill versions into a Store.
type Exporter struct {
	store  *Store
	logger *slog.Logger
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithLogger sets the exporter logger.
func WithLogger(l *slog.Logger) ExporterOption {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExporter creates an Exporter writing to store. Panics if store is nil.
func NewExporter(store *Store, opts ...ExporterOption) *Exporter {
	if store == nil {
		panic("oci: NewExporter called with nil store")
	}
	e := &Exporter{store: store, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes every version of skills as a tagged artifact. Re-exporting
// unchanged content produces identical manifests. Versions whose content does
// not match the recorded digest are logged and reported as skipped.
func (e *Exporter) Export(ctx context.Context, skills []registry.ExportedSkill) (Report, error) {
	var rep Report
	for i := range skills {
		sk := &skills[i]
		for j := range sk.Versions {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			v := &sk.Versions[j]
			if actual := contentdigest.Hex([]byte(v.ContentMarkdown)); !contentdigest.Equal(actual, v.ContentHash) {
				e.logger.WarnContext(ctx, "skipping skill version with mismatched content digest",
					"slug", sk.Slug, "version", v.Version, "recorded", v.ContentHash, "actual", actual)
				rep.Skipped = append(rep.Skipped, Skipped{
					Slug: sk.Slug, Version: v.Version, Recorded: v.ContentHash, Actual: actual,
				})
				continue
			}
			res, err := e.exportVersion(ctx, sk, v)
			if err != nil {
				return rep, fmt.Errorf("exporting %s@%s: %w", sk.Slug, v.Version, err)
			}
			e.logger.DebugContext(ctx, "skill version exported",
				"slug", res.Slug, "version", res.Version, "manifest", res.Manifest.Digest.String())
			rep.Exported = append(rep.Exported, res)
		}
	}
	return rep, nil
}

func (e *Exporter) exportVersion(ctx context.Context, sk *registry.ExportedSkill, v *registry.ExportedVersion) (Exported, error) {
	tag, err := Tag(sk.Slug, v.Version)
	if err != nil {
		return Exported{}, err
	}

	content := []byte(v.ContentMarkdown)
	layer, err := e.store.Push(ctx, MediaTypeSkillContent, content)
	if err != nil {
		return Exported{}, err
	}
	layer.Annotations = map[string]string{ocispec.AnnotationTitle: ContentFileName}

	cfgBytes, err := json.Marshal(SkillConfig{
		Slug:              sk.Slug,
		Title:             sk.Title,
		Description:       sk.Description,
		Tags:              sk.Tags,
		Capabilities:      sk.Capabilities,
		AuthorDisplayName: sk.AuthorDisplayName,
		Version:           v.Version,
		PublishedAt:       v.PublishedAt.UTC(),
	})
	if err != nil {
		return Exported{}, fmt.Errorf("marshaling config: %w", err)
	}
	cfg, err := e.store.Push(ctx, MediaTypeSkillConfig, cfgBytes)
	if err != nil {
		return Exported{}, err
	}

	manifestBytes, err := json.Marshal(newManifest(cfg, layer, sk.Slug, v))
	if err != nil {
		return Exported{}, fmt.Errorf("marshaling manifest: %w", err)
	}
	desc, err := e.store.Push(ctx, ocispec.MediaTypeImageManifest, manifestBytes)
	if err != nil {
		return Exported{}, err
	}
	desc.ArtifactType = ArtifactTypeSkill
	if err := e.store.Tag(ctx, desc, tag); err != nil {
		return Exported{}, err
	}

	return Exported{Slug: sk.Slug, Version: v.Version, Tag: tag, Manifest: desc}, nil
}

func newManifest(cfg, layer ocispec.Descriptor, slug string, v *registry.ExportedVersion) *ocispec.Manifest {
	annotations := map[string]string{
		ocispec.AnnotationCreated: v.PublishedAt.UTC().Format(time.RFC3339),
		ocispec.AnnotationTitle:   slug,
		ocispec.AnnotationVersion: v.Version,
		AnnotationSlug:            slug,
		AnnotationVersion:         v.Version,
		AnnotationDigest:          v.ContentHash,
	}
	if v.Signature != "" {
		annotations[AnnotationSignature] = v.Signature
	}
	if v.PublicKey != "" {
		annotations[AnnotationPublicKey] = v.PublicKey
	}

	return &ocispec.Manifest{
		Versioned:    specs.Versioned{SchemaVersion: 2},
		MediaType:    ocispec.MediaTypeImageManifest,
		ArtifactType: ArtifactTypeSkill,
		Config:       cfg,
		Layers:       []ocispec.Descriptor{layer},
		Annotations:  annotations,
	}
}
