// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package http validates and normalizes caller-supplied HTTP header values before
they are logged, rate limited on, or written to the audit log.

# Header Validation

	if err := http.ValidateHeaderValue(r.Header.Get("User-Agent")); err != nil {
		// Handle invalid header value
	}

The validator rejects CRLF sequences and control characters per RFC 7230 and
caps values at 8192 bytes.

# Caller identity

[CallerAgent] turns a User-Agent header into a value safe to persist, and
[ClientAddress] picks the caller address used for rate-limit keys:

	agent := http.CallerAgent(r.Header.Get("User-Agent"))
	addr := http.ClientAddress(r.Header.Get("X-Forwarded-For"), r.RemoteAddr, trustProxy)
*/
package http
