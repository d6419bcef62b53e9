// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package verify recomputes the digest of a stored skill version and checks
// its signature against the trusted publisher keys.
package verify

import (
	"github.com/stacklok/skills-registry/digest"
	"github.com/stacklok/skills-registry/signature"
)

// Record is a stored skill version as far as verification is concerned.
type Record struct {
	Content         string
	Digest          string
	Signature       string
	SignerPublicKey string
}

// Verdict is the outcome of verifying a Record.
type Verdict struct {
	DigestValid    bool `json:"hashValid"`
	SignatureValid bool `json:"signatureValid"`
	Verified       bool `json:"verified"`
}

// Signed reports whether the record carries any signature material.
func (r Record) Signed() bool {
	return r.Signature != "" && r.SignerPublicKey != ""
}

// Verify checks content against its claimed digest and the signature against
// signerPublicKey.
//
// When trusted is non-nil the signer must be a member, otherwise the
// signature is reported invalid regardless of its mathematical validity. A
// nil trusted set checks the signature against signerPublicKey alone.
// Malformed inputs never produce an error, only a negative verdict.
func Verify(content, claimedDigestHex, signatureB64, signerPublicKey string, trusted map[string]struct{}) Verdict {
	var v Verdict
	v.DigestValid = digest.Equal(digest.Hex([]byte(content)), claimedDigestHex)

	if raw, ok := digest.Decode(claimedDigestHex); ok {
		v.SignatureValid = signature.Verify(raw, signatureB64, signerPublicKey)
	}

	if trusted != nil {
		if _, ok := trusted[signerPublicKey]; !ok {
			v.SignatureValid = false
		}
	}

	v.Verified = v.DigestValid && v.SignatureValid
	return v
}

// VerifyRecord is Verify applied to a Record.
func VerifyRecord(r Record, trusted map[string]struct{}) Verdict {
	return Verify(r.Content, r.Digest, r.Signature, r.SignerPublicKey, trusted)
}
