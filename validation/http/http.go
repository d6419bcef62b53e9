// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package http provides validation functions for HTTP header values.
package http

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/http/httpguts"
)

const (
	// MaxHeaderValueLength is the longest header value accepted.
	MaxHeaderValueLength = 8192

	// MaxCallerAgentLength is the longest user agent kept for auditing.
	MaxCallerAgentLength = 256

	// UnknownAddress is reported when no usable caller address is available.
	UnknownAddress = "unknown"
)

// ValidateHeaderValue validates that a string is a valid HTTP header value per RFC 7230.
// It checks for CRLF injection and control characters.
func ValidateHeaderValue(value string) error {
	if value == "" {
		return fmt.Errorf("header value cannot be empty")
	}

	if len(value) > MaxHeaderValueLength {
		return fmt.Errorf("header value exceeds maximum length of %d bytes", MaxHeaderValueLength)
	}

	if !httpguts.ValidHeaderFieldValue(value) {
		return fmt.Errorf("invalid HTTP header value: contains control characters")
	}

	return nil
}

// CallerAgent returns value trimmed to MaxCallerAgentLength, or "" if it is
// not a valid header value.
func CallerAgent(value string) string {
	value = strings.TrimSpace(value)
	if ValidateHeaderValue(value) != nil || !utf8.ValidString(value) {
		return ""
	}
	if utf8.RuneCountInString(value) <= MaxCallerAgentLength {
		return value
	}
	return string([]rune(value)[:MaxCallerAgentLength])
}

// ClientAddress returns the caller's IP address. When trustProxy is set the
// last X-Forwarded-For entry wins if it parses as an IP. That entry is the one
// appended by the trusted proxy; entries left of it are client supplied.
// Otherwise the host part of remoteAddr is used.
func ClientAddress(forwardedFor, remoteAddr string, trustProxy bool) string {
	if trustProxy && forwardedFor != "" {
		last := forwardedFor[strings.LastIndexByte(forwardedFor, ',')+1:]
		if addr, err := netip.ParseAddr(strings.TrimSpace(last)); err == nil {
			return addr.Unmap().String()
		}
	}

	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.Unmap().String()
	}
	return UnknownAddress
}
