// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/skills-registry/digest"
	"github.com/stacklok/skills-registry/keys"
	"github.com/stacklok/skills-registry/signature"
	"github.com/stacklok/skills-registry/store"
)

var seeded = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// seedSkill stores a skill directly, bypassing the publish pipeline.
func seedSkill(t *testing.T, st store.Store, slug string, tags []string, versions ...store.Version) {
	t.Helper()
	ctx := context.Background()
	sk := store.Skill{
		ID: slug + "-id", Slug: slug, Title: "Title " + slug, Description: "About " + slug,
		Tags: tags, AuthorDisplayName: "Author", CreatedAt: seeded, UpdatedAt: seeded,
	}
	for i, v := range versions {
		v.ID = fmt.Sprintf("%s-v%d", slug, i)
		v.SkillID = sk.ID
		v.PublishedAt = seeded.Add(time.Duration(i) * time.Hour)
		if i == 0 {
			require.NoError(t, st.CreateSkill(ctx, sk, v))
			continue
		}
		require.NoError(t, st.AddVersion(ctx, sk.ID, v))
	}
}

func unsignedVersion(version, content string) store.Version {
	return store.Version{Version: version, ContentMarkdown: content, ContentHash: digest.Hex([]byte(content))}
}

func signedVersion(t *testing.T, id signature.Identity, version, content string) store.Version {
	t.Helper()
	sum := digest.Sum([]byte(content))
	sig, err := signature.Sign(sum[:], id.PrivateKey)
	require.NoError(t, err)
	return store.Version{
		Version: version, ContentMarkdown: content, ContentHash: digest.Hex([]byte(content)),
		Signature: sig, PublicKey: id.PublicKey,
	}
}

// readPaths reports, for each read entry point, whether slug is visible and
// which versions are served.
type readResult struct {
	list     bool
	detail   []string
	versions []string
	export   []string
}

func readAll(t *testing.T, svc *Service, slug string, versions ...string) (readResult, map[string]bool) {
	t.Helper()
	ctx := context.Background()
	var r readResult

	items, _, err := svc.ListSkills(ctx, ListOptions{})
	require.NoError(t, err)
	for _, it := range items {
		if it.Slug == slug {
			r.list = true
		}
	}

	if d, err := svc.GetSkill(ctx, slug); err == nil {
		for _, v := range d.Versions {
			r.detail = append(r.detail, v.Version)
		}
	} else {
		require.ErrorIs(t, err, ErrNotFound)
	}

	if vs, err := svc.ListVersions(ctx, slug); err == nil {
		for _, v := range vs {
			r.versions = append(r.versions, v.Version)
		}
	} else {
		require.ErrorIs(t, err, ErrNotFound)
	}

	exported, err := svc.ExportAll(ctx)
	require.NoError(t, err)
	for _, e := range exported {
		if e.Slug == slug {
			for _, v := range e.Versions {
				r.export = append(r.export, v.Version)
			}
		}
	}

	single := make(map[string]bool, len(versions))
	for _, v := range versions {
		_, err := svc.GetVersion(ctx, slug, v)
		if err != nil {
			require.ErrorIs(t, err, ErrNotFound)
		}
		single[v] = err == nil
	}
	return r, single
}

func TestVisibility_AppliedIdenticallyOnEveryReadPath(t *testing.T) {
	t.Parallel()

	publisher, err := signature.GenerateIdentity()
	require.NoError(t, err)
	foreign, err := signature.GenerateIdentity()
	require.NoError(t, err)

	type seed struct {
		slug     string
		tags     []string
		versions func(t *testing.T) []store.Version
	}
	mixed := seed{
		slug: "mixed-skill",
		tags: []string{"ops"},
		versions: func(t *testing.T) []store.Version {
			return []store.Version{
				signedVersion(t, publisher, "1.0.0", "signed one"),
				unsignedVersion("1.1.0", "unsigned two"),
			}
		},
	}

	tests := []struct {
		name       string
		policy     string
		seed       seed
		wantHidden bool
		want       []string
		wantSingle map[string]bool
	}{
		{
			name:       "defaults show everything",
			policy:     `{}`,
			seed:       mixed,
			want:       []string{"1.1.0", "1.0.0"},
			wantSingle: map[string]bool{"1.0.0": true, "1.1.0": true},
		},
		{
			name:       "showUnsigned false hides unsigned versions",
			policy:     `{"showUnsigned": false}`,
			seed:       mixed,
			want:       []string{"1.0.0"},
			wantSingle: map[string]bool{"1.0.0": true, "1.1.0": false},
		},
		{
			name:   "showUnsigned false hides a skill with only unsigned versions",
			policy: `{"showUnsigned": false}`,
			seed: seed{slug: "unsigned-only", tags: []string{"ops"}, versions: func(*testing.T) []store.Version {
				return []store.Version{unsignedVersion("1.0.0", "x")}
			}},
			wantHidden: true,
			wantSingle: map[string]bool{"1.0.0": false},
		},
		{
			name:   "showUnsigned false hides foreign signatures",
			policy: `{"showUnsigned": false}`,
			seed: seed{slug: "foreign-skill", versions: func(t *testing.T) []store.Version {
				return []store.Version{signedVersion(t, foreign, "1.0.0", "foreign")}
			}},
			wantHidden: true,
			wantSingle: map[string]bool{"1.0.0": false},
		},
		{
			name:       "allowedTags hides skills without a matching tag",
			policy:     `{"allowedTags": ["security"]}`,
			seed:       mixed,
			wantHidden: true,
			wantSingle: map[string]bool{"1.0.0": false, "1.1.0": false},
		},
		{
			name:   "allowedTags hides untagged skills",
			policy: `{"allowedTags": ["ops"]}`,
			seed: seed{slug: "untagged", versions: func(t *testing.T) []store.Version {
				return []store.Version{signedVersion(t, publisher, "1.0.0", "x")}
			}},
			wantHidden: true,
			wantSingle: map[string]bool{"1.0.0": false},
		},
		{
			name:       "allowedTags passes a matching tag",
			policy:     `{"allowedTags": ["ops", "security"]}`,
			seed:       mixed,
			want:       []string{"1.1.0", "1.0.0"},
			wantSingle: map[string]bool{"1.0.0": true, "1.1.0": true},
		},
		{
			name:       "blockedSlugs hides the skill",
			policy:     `{"blockedSlugs": ["mixed-skill"]}`,
			seed:       mixed,
			wantHidden: true,
			wantSingle: map[string]bool{"1.0.0": false, "1.1.0": false},
		},
		{
			name:       "blockedPublicKeys hides versions signed by the key",
			policy:     fmt.Sprintf(`{"blockedPublicKeys": [%q]}`, publisher.PublicKey),
			seed:       mixed,
			want:       []string{"1.1.0"},
			wantSingle: map[string]bool{"1.0.0": false, "1.1.0": true},
		},
		{
			name:       "rule hides versions by expression",
			policy:     `{"rules": [{"name": "stable-only", "expression": "!version.version.startsWith('1.1')"}]}`,
			seed:       mixed,
			want:       []string{"1.0.0"},
			wantSingle: map[string]bool{"1.0.0": true, "1.1.0": false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st := store.NewMemory()
			seedSkill(t, st, tt.seed.slug, tt.seed.tags, tt.seed.versions(t)...)

			km := keys.NewManager(filepath.Join(t.TempDir(), "publisher.key"),
				keys.WithPreviousKeys([]string{publisher.PublicKey}))
			svc := New(st, km, policyFrom(t, tt.policy))

			versions := make([]string, 0, len(tt.wantSingle))
			for v := range tt.wantSingle {
				versions = append(versions, v)
			}
			got, single := readAll(t, svc, tt.seed.slug, versions...)

			assert.Equal(t, tt.wantSingle, single, "single version reads")
			if tt.wantHidden {
				assert.False(t, got.list, "list")
				assert.Empty(t, got.detail, "detail")
				assert.Empty(t, got.versions, "versions")
				assert.Empty(t, got.export, "export")
				return
			}
			assert.True(t, got.list, "list")
			assert.Equal(t, tt.want, got.detail, "detail")
			assert.Equal(t, tt.want, got.versions, "versions")
			assert.Equal(t, tt.want, got.export, "export")
		})
	}
}

func TestListSkills_LatestVisibleVersion(t *testing.T) {
	t.Parallel()

	publisher, err := signature.GenerateIdentity()
	require.NoError(t, err)

	st := store.NewMemory()
	seedSkill(t, st, "mixed-skill", nil,
		signedVersion(t, publisher, "1.0.0", "signed"),
		unsignedVersion("2.0.0", "unsigned"),
	)
	km := keys.NewManager(filepath.Join(t.TempDir(), "k"), keys.WithPreviousKeys([]string{publisher.PublicKey}))

	svc := New(st, km, policyFrom(t, `{"showUnsigned": false}`))
	items, _, err := svc.ListSkills(context.Background(), ListOptions{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].LatestVersion)
	assert.Equal(t, "1.0.0", *items[0].LatestVersion)
	assert.Equal(t, []string{}, items[0].Tags)
}

func TestListSkills_QuerySearchesVisibleContentOnly(t *testing.T) {
	t.Parallel()

	publisher, err := signature.GenerateIdentity()
	require.NoError(t, err)

	st := store.NewMemory()
	seedSkill(t, st, "runbook-skill", nil,
		signedVersion(t, publisher, "1.0.0", "# public steps"),
		unsignedVersion("2.0.0", "# internal hostname db-prod-7.corp"),
	)
	km := keys.NewManager(filepath.Join(t.TempDir(), "k"), keys.WithPreviousKeys([]string{publisher.PublicKey}))

	tests := []struct {
		name   string
		policy string
		query  string
		want   int
	}{
		{name: "hidden version content", policy: `{"showUnsigned": false}`, query: "db-prod-7.corp", want: 0},
		{name: "hidden version content any case", policy: `{"showUnsigned": false}`, query: "DB-PROD-7", want: 0},
		{name: "visible version content", policy: `{"showUnsigned": false}`, query: "public steps", want: 1},
		{name: "title still matches", policy: `{"showUnsigned": false}`, query: "title runbook", want: 1},
		{name: "unsigned shown", policy: `{"showUnsigned": true}`, query: "db-prod-7.corp", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := New(st, km, policyFrom(t, tt.policy))
			items, page, err := svc.ListSkills(context.Background(), ListOptions{Query: tt.query})
			require.NoError(t, err)
			assert.Len(t, items, tt.want)
			assert.Equal(t, tt.want, page.Total)
		})
	}
}

func TestKeyRotation(t *testing.T) {
	t.Parallel()

	old, err := signature.GenerateIdentity()
	require.NoError(t, err)

	st := store.NewMemory()
	seedSkill(t, st, "old-skill", nil, signedVersion(t, old, "1.0.0", "signed by old key"))
	ctx := context.Background()

	t.Run("previous key keeps old signatures verified", func(t *testing.T) {
		t.Parallel()
		km := keys.NewManager(filepath.Join(t.TempDir(), "k"), keys.WithPreviousKeys([]string{old.PublicKey}))
		svc := New(st, km, policyFrom(t, `{"showUnsigned": false}`))

		v, err := svc.GetVersion(ctx, "old-skill", "1.0.0")
		require.NoError(t, err)
		assert.True(t, v.Verification.Verified)
		assert.True(t, v.Provenance.Signed)
		assert.Equal(t, old.PublicKey, v.Provenance.PublicKey)
	})

	t.Run("dropped key no longer verifies", func(t *testing.T) {
		t.Parallel()
		km := keys.NewManager(filepath.Join(t.TempDir(), "k"))
		svc := New(st, km, policyFrom(t, `{}`))

		v, err := svc.GetVersion(ctx, "old-skill", "1.0.0")
		require.NoError(t, err)
		assert.True(t, v.Verification.DigestValid)
		assert.False(t, v.Verification.SignatureValid)
		assert.False(t, v.Verification.Verified)

		strict := New(st, km, policyFrom(t, `{"showUnsigned": false}`))
		_, err = strict.GetVersion(ctx, "old-skill", "1.0.0")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rotating the active key keeps earlier publishes trusted", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, policyFrom(t, `{"showUnsigned": false}`))
		_, err := f.svc.PublishSkill(ctx, skillInput("rotating"), admin)
		require.NoError(t, err)

		_, err = f.keys.Rotate()
		require.NoError(t, err)

		v, err := f.svc.GetVersion(ctx, "rotating", "1.0.0")
		require.NoError(t, err)
		assert.True(t, v.Verification.Verified)
	})
}

func TestTamperedContentIsUnverified(t *testing.T) {
	t.Parallel()

	f := newFixture(t, policyFrom(t, `{}`))
	id, err := f.keys.EnsureActiveIdentity()
	require.NoError(t, err)

	v := signedVersion(t, id, "1.0.0", "original")
	v.ContentMarkdown = "tampered"
	seedSkill(t, f.store, "tampered", nil, v)

	got, err := f.svc.GetVersion(context.Background(), "tampered", "1.0.0")
	require.NoError(t, err)
	assert.False(t, got.Verification.DigestValid)
	assert.True(t, got.Verification.SignatureValid)
	assert.False(t, got.Verification.Verified)
}

func TestListSkills_FilterAndPagination(t *testing.T) {
	t.Parallel()

	f := newFixture(t, policyFrom(t, `{}`))
	ctx := context.Background()
	for i := range 5 {
		in := skillInput(fmt.Sprintf("skill-%d", i), "ops")
		if i%2 == 0 {
			in.Tags = []string{"docs"}
		}
		_, err := f.svc.PublishSkill(ctx, in, admin)
		require.NoError(t, err)
	}

	items, page, err := f.svc.ListSkills(ctx, ListOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, Pagination{Limit: 2, Offset: 1, Returned: 2, Total: 5}, page)
	assert.Equal(t, "skill-3", items[0].Slug)
	assert.Equal(t, "skill-2", items[1].Slug)

	items, page, err = f.svc.ListSkills(ctx, ListOptions{Tags: []string{" ops "}})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, "skill-3", items[0].Slug)

	items, _, err = f.svc.ListSkills(ctx, ListOptions{Query: "SKILL-4"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "skill-4", items[0].Slug)

	items, page, err = f.svc.ListSkills(ctx, ListOptions{Offset: 50})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
	assert.Equal(t, 5, page.Total)

	exported, page, err := f.svc.Export(ctx, 3, 0)
	require.NoError(t, err)
	assert.Len(t, exported, 3)
	assert.Equal(t, 5, page.Total)
	assert.NotEmpty(t, exported[0].Versions[0].ContentMarkdown)
	assert.NotEmpty(t, exported[0].Versions[0].Signature)
}

func TestNormalizePage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, DefaultLimit, 0},
		{-5, -1, DefaultLimit, 0},
		{50, 10, 50, 10},
		{1000, 0, MaxLimit, 0},
		{1, 3, 1, 3},
	}
	for _, tt := range tests {
		l, o := NormalizePage(tt.limit, tt.offset)
		assert.Equal(t, tt.wantLimit, l)
		assert.Equal(t, tt.wantOffset, o)
	}
}
