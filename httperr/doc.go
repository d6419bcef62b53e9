// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package httperr provides error types with HTTP status codes and machine-readable
reasons for API error handling.

Errors carry their intended HTTP response through the call stack so handlers
can respond from one place. The CodedError type implements the standard error
interface and supports errors.Is() and errors.As().

# Basic Usage

	// Create a new error with a status code
	err := httperr.New("skill not found", http.StatusNotFound)

	// Wrap an existing error with a status code and reason
	err := httperr.WithReason(err, http.StatusServiceUnavailable, "storage_unavailable")

# Extracting Status Codes

	code := httperr.Code(err)     // 500 when no CodedError is present, 200 for nil
	reason := httperr.Reason(err) // "internal_error" when no reason was given

# Writing Responses

Write renders an error as the registry's JSON error body:

	{"error": "not_found", "message": "skill not found"}

Errors without a CodedError in their chain are reported as a generic 500 so
internal details do not leak to callers.
*/
package httperr
