// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateHeaderValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		expectErr bool
	}{
		// Valid cases
		{"simple", "curl/8.5.0", false},
		{"browser agent", "Mozilla/5.0 (X11; Linux x86_64)", false},
		{"with tab", "value\twith tab", false},

		// CRLF injection attacks
		{"crlf injection", "agent\r\nX-Injected: malicious", true},
		{"newline injection", "agent\nInjected", true},
		{"carriage return", "agent\r", true},

		// Other invalid characters
		{"null byte", "agent\x00", true},
		{"empty string", "", true},

		// Length limits
		{"too long", strings.Repeat("A", MaxHeaderValueLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateHeaderValue(tt.input)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCallerAgent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"kept", "skills-cli/1.2", "skills-cli/1.2"},
		{"trimmed", "  skills-cli/1.2 ", "skills-cli/1.2"},
		{"empty", "", ""},
		{"injection dropped", "a\r\nb", ""},
		{"truncated", strings.Repeat("x", MaxCallerAgentLength+10), strings.Repeat("x", MaxCallerAgentLength)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CallerAgent(tt.input))
		})
	}
}

func TestClientAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		forwardedFor string
		remoteAddr   string
		trustProxy   bool
		want         string
	}{
		{"remote addr", "", "192.0.2.10:51234", false, "192.0.2.10"},
		{"ipv6 remote addr", "", "[2001:db8::1]:443", false, "2001:db8::1"},
		{"forwarded ignored without trust", "203.0.113.7", "192.0.2.10:51234", false, "192.0.2.10"},
		{"forwarded single entry", "203.0.113.7", "192.0.2.10:51234", true, "203.0.113.7"},
		{"forwarded last entry", "203.0.113.7, 10.0.0.1", "192.0.2.10:51234", true, "10.0.0.1"},
		{"spoofed leading entry ignored", "1.2.3.4, 198.51.100.9", "192.0.2.10:51234", true, "198.51.100.9"},
		{"rotated spoof yields same address", "5.6.7.8,198.51.100.9", "192.0.2.10:51234", true, "198.51.100.9"},
		{"garbage last entry falls back", "203.0.113.7, not-an-ip", "192.0.2.10:51234", true, "192.0.2.10"},
		{"garbage forwarded falls back", "not-an-ip", "192.0.2.10:51234", true, "192.0.2.10"},
		{"mapped ipv4", "::ffff:203.0.113.7", "192.0.2.10:1", true, "203.0.113.7"},
		{"unparseable", "", "pipe", false, UnknownAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ClientAddress(tt.forwardedFor, tt.remoteAddr, tt.trustProxy))
		})
	}
}
