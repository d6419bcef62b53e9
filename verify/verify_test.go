// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/skills-registry/digest"
	"github.com/stacklok/skills-registry/signature"
)

func signedRecord(t *testing.T, content string, id signature.Identity) Record {
	t.Helper()

	sum := digest.Sum([]byte(content))
	sig, err := signature.Sign(sum[:], id.PrivateKey)
	require.NoError(t, err)

	return Record{
		Content:         content,
		Digest:          digest.Hex([]byte(content)),
		Signature:       sig,
		SignerPublicKey: id.PublicKey,
	}
}

func trustedSet(keys ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

func TestVerify(t *testing.T) {
	t.Parallel()

	active, err := signature.GenerateIdentity()
	require.NoError(t, err)
	previous, err := signature.GenerateIdentity()
	require.NoError(t, err)
	stranger, err := signature.GenerateIdentity()
	require.NoError(t, err)

	const content = "# Deploy safely\n\nRun the checklist."
	good := signedRecord(t, content, active)

	tests := []struct {
		name    string
		record  func() Record
		trusted map[string]struct{}
		want    Verdict
	}{
		{
			name:    "valid and trusted",
			record:  func() Record { return good },
			trusted: trustedSet(active.PublicKey),
			want:    Verdict{DigestValid: true, SignatureValid: true, Verified: true},
		},
		{
			name:   "no trusted set checks signature alone",
			record: func() Record { return good },
			want:   Verdict{DigestValid: true, SignatureValid: true, Verified: true},
		},
		{
			name: "upper-case claimed digest",
			record: func() Record {
				r := good
				r.Digest = strings.ToUpper(r.Digest)
				return r
			},
			trusted: trustedSet(active.PublicKey),
			want:    Verdict{DigestValid: true, SignatureValid: true, Verified: true},
		},
		{
			name:    "previous key remains trusted",
			record:  func() Record { return signedRecord(t, content, previous) },
			trusted: trustedSet(active.PublicKey, previous.PublicKey),
			want:    Verdict{DigestValid: true, SignatureValid: true, Verified: true},
		},
		{
			name:    "valid signature from untrusted key",
			record:  func() Record { return signedRecord(t, content, stranger) },
			trusted: trustedSet(active.PublicKey),
			want:    Verdict{DigestValid: true},
		},
		{
			name:    "empty trusted set trusts nobody",
			record:  func() Record { return good },
			trusted: trustedSet(),
			want:    Verdict{DigestValid: true},
		},
		{
			name: "tampered content",
			record: func() Record {
				r := good
				r.Content += " "
				return r
			},
			trusted: trustedSet(active.PublicKey),
			// The signature still covers the claimed digest.
			want: Verdict{SignatureValid: true},
		},
		{
			name: "malformed digest skips signature check",
			record: func() Record {
				r := good
				r.Digest = "not-a-digest"
				return r
			},
			trusted: trustedSet(active.PublicKey),
			want:    Verdict{},
		},
		{
			name: "digest of other content",
			record: func() Record {
				r := good
				r.Digest = digest.Hex([]byte("something else"))
				return r
			},
			trusted: trustedSet(active.PublicKey),
			want:    Verdict{},
		},
		{
			name: "garbage signature",
			record: func() Record {
				r := good
				r.Signature = "!!!"
				return r
			},
			trusted: trustedSet(active.PublicKey),
			want:    Verdict{DigestValid: true},
		},
		{
			name: "unsigned",
			record: func() Record {
				return Record{Content: content, Digest: digest.Hex([]byte(content))}
			},
			trusted: trustedSet(active.PublicKey),
			want:    Verdict{DigestValid: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := VerifyRecord(tt.record(), tt.trusted)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.DigestValid && got.SignatureValid, got.Verified)
		})
	}
}

func TestVerify_SignatureOverDigestNotContent(t *testing.T) {
	t.Parallel()

	id, err := signature.GenerateIdentity()
	require.NoError(t, err)

	r := signedRecord(t, "hello", id)
	// A record that moves the signature onto a different digest must fail.
	other := digest.Hex([]byte("hello!"))
	v := Verify("hello!", other, r.Signature, r.SignerPublicKey, nil)
	assert.True(t, v.DigestValid)
	assert.False(t, v.SignatureValid)
	assert.False(t, v.Verified)
}

func TestRecordSigned(t *testing.T) {
	t.Parallel()

	assert.False(t, Record{}.Signed())
	assert.False(t, Record{Signature: "x"}.Signed())
	assert.True(t, Record{Signature: "x", SignerPublicKey: "y"}.Signed())
}
