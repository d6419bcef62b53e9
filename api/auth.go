// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/stacklok/skills-registry/httperr"
)

// Admin session cookie.
const (
	SessionCookie = "admin_session"
	SessionMaxAge = 8 * time.Hour
)

var (
	errUnauthorized   = httperr.WithReason(errors.New("unauthorized"), http.StatusUnauthorized, "unauthorized")
	errTokenNotSet    = httperr.WithReason(errors.New("admin token not configured"), http.StatusInternalServerError, "admin_token_not_configured")
	errMalformedLogin = httperr.WithReason(errors.New("malformed login request"), http.StatusBadRequest, "invalid_input")
)

func (s *Server) tokenMatches(candidate string) bool {
	if s.adminToken == "" || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(s.adminToken)) == 1
}

// isAdmin accepts a bearer token or the session cookie.
func (s *Server) isAdmin(r *http.Request) bool {
	if s.adminToken == "" {
		return false
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if s.tokenMatches(strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))) {
			return true
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil && s.tokenMatches(c.Value) {
		return true
	}
	return false
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.isAdmin(r) {
			httperr.Write(w, errUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Token string `json:"token"`
}

type loginResponse struct {
	OK        bool      `json:"ok"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if s.adminToken == "" {
		httperr.Write(w, errTokenNotSet)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httperr.Write(w, errMalformedLogin)
		return
	}
	if !s.tokenMatches(req.Token) {
		s.logger.WarnContext(r.Context(), "admin login rejected", "ip", s.caller(r).Address)
		httperr.Write(w, errUnauthorized)
		return
	}

	expires := s.now().Add(SessionMaxAge).UTC()
	http.SetCookie(w, s.sessionCookie(s.adminToken, int(SessionMaxAge.Seconds())))
	writeJSON(w, http.StatusOK, loginResponse{OK: true, ExpiresAt: expires})
}

func (s *Server) logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, s.sessionCookie("", -1))
	writeJSON(w, http.StatusOK, loginResponse{OK: true})
}

func (s *Server) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}
