// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package recovery provides panic recovery middleware for the registry API.
//
// A panicking handler is logged with its stack trace and the client receives
// the standard JSON error body with status 500:
//
//	router.Use(recovery.Middleware(logger))
//
// The http.ErrAbortHandler sentinel is re-panicked so net/http can abort
// the connection as it normally would.
package recovery
