// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oci

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/memory"
	"oras.land/oras-go/v2/registry/remote/credentials"

	contentdigest "github.com/stacklok/skills-registry/digest"
	"github.com/stacklok/skills-registry/registry"
)

var published = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func exportedSkill(versions ...string) registry.ExportedSkill {
	sk := registry.ExportedSkill{
		SkillInfo: registry.SkillInfo{
			Slug:              "deploy-helper",
			Title:             "Deploy helper",
			Description:       "Deploys things",
			Tags:              []string{"ops"},
			Capabilities:      []string{"shell"},
			AuthorDisplayName: "Ops",
		},
	}
	for _, v := range versions {
		md := "# Deploy " + v
		sk.Versions = append(sk.Versions, registry.ExportedVersion{
			VersionSummary: registry.VersionSummary{
				Version:     v,
				PublishedAt: published,
				ContentHash: contentdigest.Hex([]byte(md)),
			},
			ContentMarkdown: md,
			Signature:       "c2lnbmF0dXJl",
			PublicKey:       "cHVibGljLWtleQ==",
		})
	}
	return sk
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return st
}

func TestExport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	exp := NewExporter(st)

	rep, err := exp.Export(ctx, []registry.ExportedSkill{exportedSkill("1.0.0", "1.1.0+build.7")})
	require.NoError(t, err)
	assert.Empty(t, rep.Skipped)
	res := rep.Exported
	require.Len(t, res, 2)
	assert.Equal(t, "deploy-helper-1.0.0", res[0].Tag)
	assert.Equal(t, "deploy-helper-1.1.0_build.7", res[1].Tag)

	tags, err := st.ListTags(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"deploy-helper-1.0.0", "deploy-helper-1.1.0_build.7"}, tags)

	desc, err := st.Resolve(ctx, "deploy-helper-1.0.0")
	require.NoError(t, err)
	assert.Equal(t, res[0].Manifest.Digest, desc.Digest)

	raw, err := st.Fetch(ctx, desc.Digest)
	require.NoError(t, err)
	var manifest ocispec.Manifest
	require.NoError(t, json.Unmarshal(raw, &manifest))

	assert.Equal(t, ArtifactTypeSkill, manifest.ArtifactType)
	assert.Equal(t, "deploy-helper", manifest.Annotations[AnnotationSlug])
	assert.Equal(t, "1.0.0", manifest.Annotations[AnnotationVersion])
	assert.Equal(t, contentdigest.Hex([]byte("# Deploy 1.0.0")), manifest.Annotations[AnnotationDigest])
	assert.Equal(t, "c2lnbmF0dXJl", manifest.Annotations[AnnotationSignature])
	assert.Equal(t, "cHVibGljLWtleQ==", manifest.Annotations[AnnotationPublicKey])
	assert.Equal(t, "2026-03-01T12:00:00Z", manifest.Annotations[ocispec.AnnotationCreated])

	require.Len(t, manifest.Layers, 1)
	layer := manifest.Layers[0]
	assert.Equal(t, MediaTypeSkillContent, layer.MediaType)
	assert.Equal(t, ContentFileName, layer.Annotations[ocispec.AnnotationTitle])
	content, err := st.Fetch(ctx, layer.Digest)
	require.NoError(t, err)
	assert.Equal(t, "# Deploy 1.0.0", string(content))

	assert.Equal(t, MediaTypeSkillConfig, manifest.Config.MediaType)
	cfgRaw, err := st.Fetch(ctx, manifest.Config.Digest)
	require.NoError(t, err)
	cfg, err := ParseSkillConfig(cfgRaw)
	require.NoError(t, err)
	assert.Equal(t, "deploy-helper", cfg.Slug)
	assert.Equal(t, "1.0.0", cfg.Version)
	assert.Equal(t, []string{"ops"}, cfg.Tags)
	assert.True(t, cfg.PublishedAt.Equal(published))
}

func TestExport_Reproducible(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	skills := []registry.ExportedSkill{exportedSkill("1.0.0")}

	first, err := NewExporter(newTestStore(t)).Export(ctx, skills)
	require.NoError(t, err)
	second, err := NewExporter(newTestStore(t)).Export(ctx, skills)
	require.NoError(t, err)

	assert.Equal(t, first.Exported[0].Manifest.Digest, second.Exported[0].Manifest.Digest)
}

func TestExport_SameStoreTwice(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	skills := []registry.ExportedSkill{exportedSkill("1.0.0")}

	_, err := NewExporter(st).Export(ctx, skills)
	require.NoError(t, err)
	_, err = NewExporter(st).Export(ctx, skills)
	require.NoError(t, err)
}

func TestExport_SkipsMismatchedContent(t *testing.T) {
	t.Parallel()

	tampered := exportedSkill("1.0.0", "1.1.0")
	tampered.Slug = "aaa-skill"
	tampered.Versions[0].ContentMarkdown = "# Deploy 1.0.0, edited in place"
	good := exportedSkill("1.0.0")
	good.Slug = "bbb-skill"

	tests := []struct {
		name        string
		skills      []registry.ExportedSkill
		wantTags    []string
		wantSkipped []string
	}{
		{
			name:        "tampered version before a good skill",
			skills:      []registry.ExportedSkill{tampered, good},
			wantTags:    []string{"aaa-skill-1.1.0", "bbb-skill-1.0.0"},
			wantSkipped: []string{"aaa-skill@1.0.0"},
		},
		{
			name:     "only good content",
			skills:   []registry.ExportedSkill{good},
			wantTags: []string{"bbb-skill-1.0.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			st := newTestStore(t)
			rep, err := NewExporter(st).Export(ctx, tt.skills)
			require.NoError(t, err)

			got := make([]string, 0, len(rep.Exported))
			for _, e := range rep.Exported {
				got = append(got, e.Tag)
			}
			assert.Equal(t, tt.wantTags, got)

			skipped := make([]string, 0, len(rep.Skipped))
			for _, sk := range rep.Skipped {
				skipped = append(skipped, sk.Slug+"@"+sk.Version)
				assert.NotEqual(t, sk.Recorded, sk.Actual)
			}
			assert.ElementsMatch(t, tt.wantSkipped, skipped)

			tags, err := st.ListTags(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.wantTags, tags)
		})
	}
}

func TestExport_Errors(t *testing.T) {
	t.Parallel()

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		rep, err := NewExporter(newTestStore(t)).Export(ctx, []registry.ExportedSkill{exportedSkill("1.0.0")})
		require.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, rep.Exported)
	})

	t.Run("nil store panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { NewExporter(nil) })
	})
}

func TestTag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		slug, version string
		want          string
		wantErr       bool
	}{
		{slug: "deploy-helper", version: "1.0.0", want: "deploy-helper-1.0.0"},
		{slug: "abc", version: "2.0.0-rc.1+sha.5114f85", want: "abc-2.0.0-rc.1_sha.5114f85"},
		{slug: "-abc", version: "1.0.0", wantErr: true},
		{slug: "abc", version: "1.0.0/../x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.slug+"@"+tt.version, func(t *testing.T) {
			t.Parallel()
			got, err := Tag(tt.slug, tt.version)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSkillConfig(t *testing.T) {
	t.Parallel()

	_, err := ParseSkillConfig([]byte(`{`))
	require.Error(t, err)

	_, err = ParseSkillConfig([]byte(`{"slug":"abc"}`))
	require.Error(t, err)

	cfg, err := ParseSkillConfig([]byte(`{"slug":"abc","version":"1.0.0"}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.Slug)
}

func TestPusher(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	rep, err := NewExporter(st).Export(ctx, []registry.ExportedSkill{exportedSkill("1.0.0", "1.1.0")})
	require.NoError(t, err)
	res := rep.Exported

	remote := memory.New()
	p, err := NewPusher(WithCredentialStore(credentials.NewMemoryStore()))
	require.NoError(t, err)
	var gotRepo string
	p.newTarget = func(repo string) (oras.Target, error) {
		gotRepo = repo
		return remote, nil
	}

	require.NoError(t, p.Push(ctx, st, "ghcr.io/acme/skills", []string{res[0].Tag, res[1].Tag}))
	assert.Equal(t, "ghcr.io/acme/skills", gotRepo)

	for _, r := range res {
		desc, err := remote.Resolve(ctx, r.Tag)
		require.NoError(t, err)
		assert.Equal(t, r.Manifest.Digest, desc.Digest)
	}

	err = p.Push(ctx, st, "ghcr.io/acme/skills", []string{"missing-1.0.0"})
	require.Error(t, err)
}

func TestValidateRepository(t *testing.T) {
	t.Parallel()

	tests := []struct {
		repo    string
		wantErr bool
	}{
		{repo: "ghcr.io/acme/skills"},
		{repo: "localhost:5000/skills"},
		{repo: "ghcr.io/acme/skills:latest", wantErr: true},
		{repo: ":::invalid", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.repo, func(t *testing.T) {
			t.Parallel()
			err := validateRepository(tt.repo)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewPusher_Options(t *testing.T) {
	t.Parallel()

	p, err := NewPusher(WithPlainHTTP(true), WithCredentialStore(credentials.NewMemoryStore()))
	require.NoError(t, err)
	assert.True(t, p.plainHTTP)
	assert.NotNil(t, p.newTarget)
}
