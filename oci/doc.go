// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package oci exports registry content as OCI artifacts.

Every exported skill version becomes one image manifest in an OCI Image
Layout directory:

	config blob   application/vnd.skills-registry.skill.config.v1+json
	content layer text/markdown (the exact signed bytes)

The manifest carries artifactType dev.skills-registry.skill.v1 and
annotations with the slug, version, content digest, signature and signer
public key, so a consumer can re-verify the content offline. Manifests are
tagged "<slug>-<version>".

A Pusher copies tagged artifacts from the layout to a remote registry.
*/
package oci
