// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package digest computes the content fingerprint of skill documents.

Every skill version is identified by the SHA-256 of its raw markdown bytes,
hex-encoded as 64 lowercase characters on the wire. Signatures are produced
over the 32 raw digest bytes, never over the content itself, so signing cost
is independent of document size.

	sum := digest.Sum([]byte("hello"))
	hex := digest.Hex([]byte("hello"))
	// 2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824

Digests received from storage or from clients are never trusted: use
[IsHex] before decoding them and recompute with [Hex] before comparing.
*/
package digest
