// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package keys owns the registry's publisher signing identity.

A [Manager] is bound to a single key file. The first call to
[Manager.EnsureActiveIdentity] generates an Ed25519 identity if the file does
not exist yet and persists it with 0600 permissions; later calls, and later
processes, load the same identity. Creation is exclusive: when several
processes race to create the file, exactly one wins and the others discard
their freshly generated keys and read the winner's.

The trusted key set is the active public key plus the previously active
public keys supplied by the operator, which keeps signatures made before a
rotation verifiable:

	m := keys.NewManager(path, keys.WithPreviousKeys(prev))
	trusted, err := m.TrustedPublicKeys()

A key file that exists but cannot be parsed is reported as
[ErrCorruptKeyFile]. It is never regenerated automatically, since that would
silently invalidate every signature made with the lost key.
*/
package keys
