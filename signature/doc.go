// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package signature provides the Ed25519 signing primitives used to sign skill
content digests.

Keys travel as standard base64 of their DER serialization: SubjectPublicKeyInfo
for public keys and PKCS#8 for private keys. Signatures are standard base64 of
the 64-byte Ed25519 signature. These encodings are shared with external
verifiers and must not change.

	id, err := signature.GenerateIdentity()
	sig, err := signature.Sign(sum[:], id.PrivateKey)
	ok := signature.Verify(sum[:], sig, id.PublicKey)

[Verify] never returns an error: malformed keys, signatures, or digests all
produce false.
*/
package signature
