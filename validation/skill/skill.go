// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package skill

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field limits.
const (
	MinSlugLength        = 3
	MaxSlugLength        = 64
	MaxVersionLength     = 32
	MaxListItems         = 20
	MaxListItemLength    = 32
	MinTitleLength       = 3
	MaxTitleLength       = 120
	MinDescriptionLength = 3
	MaxDescriptionLength = 280
	MinAuthorLength      = 2
	MaxAuthorLength      = 80
	MaxMarkdownLength    = 20000
)

var (
	slugRegex    = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	versionRegex = regexp.MustCompile(`^\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?$`)
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid input")

// ValidateSlug checks a skill slug.
func ValidateSlug(slug string) error {
	if err := length("slug", slug, MinSlugLength, MaxSlugLength); err != nil {
		return err
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("%w: slug must be kebab-case", ErrInvalid)
	}
	return nil
}

// ValidateVersion checks a semantic version string.
func ValidateVersion(version string) error {
	if utf8.RuneCountInString(version) > MaxVersionLength {
		return fmt.Errorf("%w: version must be at most %d characters", ErrInvalid, MaxVersionLength)
	}
	if !versionRegex.MatchString(version) {
		return fmt.Errorf("%w: invalid semver %q", ErrInvalid, version)
	}
	return nil
}

// ValidateTags checks a tag list.
func ValidateTags(tags []string) error {
	return list("tags", tags)
}

// ValidateCapabilities checks a capability list.
func ValidateCapabilities(capabilities []string) error {
	return list("capabilities", capabilities)
}

// ValidateTitle checks a skill title.
func ValidateTitle(title string) error {
	return length("title", title, MinTitleLength, MaxTitleLength)
}

// ValidateDescription checks a skill description.
func ValidateDescription(description string) error {
	return length("description", description, MinDescriptionLength, MaxDescriptionLength)
}

// ValidateAuthor checks an author display name.
func ValidateAuthor(author string) error {
	return length("author", author, MinAuthorLength, MaxAuthorLength)
}

// ValidateMarkdown checks skill content.
func ValidateMarkdown(markdown string) error {
	if strings.Contains(markdown, "\x00") {
		return fmt.Errorf("%w: markdown cannot contain null bytes", ErrInvalid)
	}
	return length("markdown", markdown, 1, MaxMarkdownLength)
}

func length(field, value string, minLen, maxLen int) error {
	n := utf8.RuneCountInString(value)
	if n < minLen {
		return fmt.Errorf("%w: %s must be at least %d characters", ErrInvalid, field, minLen)
	}
	if n > maxLen {
		return fmt.Errorf("%w: %s must be at most %d characters", ErrInvalid, field, maxLen)
	}
	return nil
}

func list(field string, items []string) error {
	if len(items) > MaxListItems {
		return fmt.Errorf("%w: %s must have at most %d items", ErrInvalid, field, MaxListItems)
	}
	for i, item := range items {
		if err := length(fmt.Sprintf("%s[%d]", field, i), item, 1, MaxListItemLength); err != nil {
			return err
		}
	}
	return nil
}

// FieldError is a validation failure of one named field.
type FieldError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// Errors accumulates FieldErrors.
type Errors []*FieldError

// Check records err against field when it is non-nil.
func (e *Errors) Check(field string, err error) {
	if err != nil {
		*e = append(*e, &FieldError{Field: field, Err: err})
	}
}

// Err returns the accumulated failures as one error, or nil if there are none.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	errs := make([]error, len(e))
	for i, fe := range e {
		errs[i] = fe
	}
	return errors.Join(errs...)
}

// Fields returns the field names that failed, in order.
func (e Errors) Fields() []string {
	out := make([]string, len(e))
	for i, fe := range e {
		out[i] = fe.Field
	}
	return out
}
