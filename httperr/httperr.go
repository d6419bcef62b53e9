// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package httperr provides error types with HTTP status codes for API error handling.
package httperr

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// CodedError wraps an error with an HTTP status code and a reason string.
type CodedError struct {
	err    error
	code   int
	reason string
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	return e.err.Error()
}

// Unwrap returns the underlying error for errors.Is() and errors.As() compatibility.
func (e *CodedError) Unwrap() error {
	return e.err
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *CodedError) HTTPCode() int {
	return e.code
}

// Reason returns the machine-readable reason, derived from the status code
// when none was given.
func (e *CodedError) Reason() string {
	if e.reason != "" {
		return e.reason
	}
	return reasonFromStatus(e.code)
}

// WithCode wraps an error with an HTTP status code.
// If err is nil, WithCode returns nil.
func WithCode(err error, code int) error {
	return WithReason(err, code, "")
}

// WithReason wraps an error with an HTTP status code and a reason.
// If err is nil, WithReason returns nil.
func WithReason(err error, code int, reason string) error {
	if err == nil {
		return nil
	}
	return &CodedError{err: err, code: code, reason: reason}
}

// Code extracts the HTTP status code from an error.
// If no CodedError is found, it returns http.StatusInternalServerError (500).
func Code(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.code
	}
	return http.StatusInternalServerError
}

// Reason extracts the machine-readable reason from an error.
func Reason(err error) string {
	if err == nil {
		return ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Reason()
	}
	return reasonFromStatus(http.StatusInternalServerError)
}

// New creates a new error with the given message and HTTP status code.
func New(message string, code int) error {
	return &CodedError{err: errors.New(message), code: code}
}

// Body is the JSON shape of an error response.
type Body struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Write renders err as a JSON error response.
func Write(w http.ResponseWriter, err error) {
	code := Code(err)
	body := Body{Error: Reason(err)}

	// Client errors carry the whole chain, server errors only the coded message.
	var coded *CodedError
	switch {
	case errors.As(err, &coded) && code < http.StatusInternalServerError:
		body.Message = err.Error()
	case coded != nil:
		body.Message = coded.Error()
	default:
		body.Message = http.StatusText(code)
	}

	WriteJSON(w, code, body)
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func reasonFromStatus(code int) string {
	text := http.StatusText(code)
	if text == "" {
		return "error"
	}
	if code == http.StatusInternalServerError {
		return "internal_error"
	}
	return strings.ReplaceAll(strings.ToLower(text), " ", "_")
}
