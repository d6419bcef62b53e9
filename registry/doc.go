// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package registry is the skills registry service: it publishes signed skill
versions and serves them through the visibility policy.

# Write path

[Service.PublishSkill] and [Service.PublishVersion] validate the submission,
digest the markdown, sign the digest with the active publisher key and
verify the fresh signature against that key before anything is stored. A
failed self-check refuses the publish with [ErrSelfCheckFailed]. Successful
publishes are handed to the audit recorder, which never fails the publish.

# Read path

Every read entry point ([Service.ListSkills], [Service.GetSkill],
[Service.ListVersions], [Service.GetVersion], [Service.Export]) runs the same
visibility check: the slug block-list and tag gate at the skill level, then
[policy.Policy.EvaluateFor] per version against the currently trusted keys.
A skill with no visible version is hidden. Hidden content is reported as
[ErrNotFound], never as forbidden.

Errors returned by the service carry HTTP status codes through the httperr
package, so transports can render them directly.
*/
package registry
