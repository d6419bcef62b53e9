// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/stacklok/skills-registry/httperr"
	"github.com/stacklok/skills-registry/store"
)

var (
	// ErrNotFound is returned for missing and for policy-hidden content.
	ErrNotFound = httperr.WithReason(errors.New("not found"), http.StatusNotFound, "not_found")

	// ErrConflict is returned when the slug or version already exists.
	ErrConflict = httperr.WithReason(errors.New("already exists"), http.StatusConflict, "conflict")

	// ErrInvalidInput wraps validation failures of a submission.
	ErrInvalidInput = httperr.WithReason(errors.New("invalid input"), http.StatusBadRequest, "invalid_input")

	// ErrUnavailable is returned when the storage cannot be reached.
	ErrUnavailable = httperr.WithReason(errors.New("storage unavailable"), http.StatusServiceUnavailable, "storage_unavailable")

	// ErrSigningUnavailable is returned when the publisher key cannot be
	// loaded. Nothing is published unsigned.
	ErrSigningUnavailable = httperr.WithReason(errors.New("signing key unavailable"),
		http.StatusInternalServerError, "signing_unavailable")

	// ErrSelfCheckFailed is returned when a freshly produced signature does
	// not verify against the active key.
	ErrSelfCheckFailed = httperr.WithReason(errors.New("signature self-check failed"),
		http.StatusInternalServerError, "self_check_failed")
)

// storageError maps a store error onto the service taxonomy. Not-found is
// returned bare so a missing slug reads exactly like a hidden one.
func storageError(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
}
