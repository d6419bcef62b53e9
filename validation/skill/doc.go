// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package skill validates publish requests before anything is digested or signed.

# Field rules

  - slug: kebab-case, 3 to 64 characters ("deploy-checklist")
  - version: MAJOR.MINOR.PATCH with an optional pre-release suffix, at most
    32 characters ("1.2.0", "2.0.0-rc.1")
  - tags, capabilities: at most 20 items of 1 to 32 characters
  - title: 3 to 120 characters
  - description: 3 to 280 characters
  - author: 2 to 80 characters
  - markdown: 1 to 20000 characters

Lengths are counted in Unicode code points.

# Usage

Individual validators return a descriptive error:

	if err := skill.ValidateSlug("Deploy"); err != nil {
		// "slug must be kebab-case"
	}

[Errors] collects failures across fields so a caller can report all of them
at once:

	var errs skill.Errors
	errs.Check("slug", skill.ValidateSlug(in.Slug))
	errs.Check("version", skill.ValidateVersion(in.Version))
	if err := errs.Err(); err != nil {
		return err
	}
*/
package skill
