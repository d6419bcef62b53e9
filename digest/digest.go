// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"encoding/hex"
	"strings"

	godigest "github.com/opencontainers/go-digest"
)

// Size is the length in bytes of a content digest.
const Size = 32

// HexSize is the length of a hex-encoded content digest.
const HexSize = 2 * Size

// Algorithm is the digest algorithm used for skill content.
const Algorithm = godigest.SHA256

// Sum returns the SHA-256 digest of content. Any input, including empty, is valid.
func Sum(content []byte) [Size]byte {
	h := Algorithm.Hash()
	_, _ = h.Write(content)

	var out [Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Hex returns the lowercase hex encoding of the SHA-256 digest of content.
func Hex(content []byte) string {
	return Algorithm.FromBytes(content).Encoded()
}

// IsHex reports whether s is a well-formed hex digest. Upper-case hex is accepted.
func IsHex(s string) bool {
	if len(s) != HexSize {
		return false
	}
	return godigest.NewDigestFromEncoded(Algorithm, strings.ToLower(s)).Validate() == nil
}

// Decode returns the raw bytes of a hex digest. The second return value is
// false if s is not a well-formed digest.
func Decode(s string) ([]byte, bool) {
	if !IsHex(s) {
		return nil, false
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return raw, true
}

// Equal compares two hex digests case-insensitively.
func Equal(a, b string) bool {
	return strings.EqualFold(a, b)
}

// OCI returns the digest of content in OCI "algorithm:encoded" form.
func OCI(content []byte) godigest.Digest {
	return Algorithm.FromBytes(content)
}
