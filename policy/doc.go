// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package policy decides which skills and skill versions the registry shows.

A [Policy] is an operator document, in JSON or YAML, with these fields:

	allowedTags: [ops, data]       # a skill must share one; empty is unrestricted
	blockedSlugs: [legacy-skill]
	blockedPublicKeys: [MCowBQ...]
	showUnsigned: false            # hide unsigned or unverified versions
	rules:
	  - name: verified-ops
	    expression: 'verdict.verified || !("ops" in skill.tags)'

Version-level checks run in order and stop at the first failure: a version
signed by a blocked key is hidden, then its verdict is computed against the
trusted keys, then unsigned or unverified versions are hidden when
showUnsigned is false, and finally every rule must evaluate to true.
Collection-level checks (the tag gate and the slug block-list) apply to the
skill as a whole; see [Policy.CollectionVisible].

Rules are CEL expressions over three variables:

  - skill: slug, tags, capabilities
  - version: version, digest, publicKey, signed
  - verdict: hashValid, signatureValid, verified

A rule that fails to evaluate hides the version.

A [Loader] re-reads the document after a TTL, or on every access in
development mode, and exposes the SHA-256 of the raw bytes it loaded.
*/
package policy
