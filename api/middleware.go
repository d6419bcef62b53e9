// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/stacklok/skills-registry/logging"
	"github.com/stacklok/skills-registry/ratelimit"
	"github.com/stacklok/skills-registry/registry"
	validation "github.com/stacklok/skills-registry/validation/http"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

type requestIDKey struct{}

// RequestID returns the ID assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestID accepts a well-formed incoming X-Request-ID or assigns a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength || validation.ValidateHeaderValue(id) != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		ctx = logging.WithAttrs(ctx, slog.String("request_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

// caller describes the client of r for auditing and rate limiting.
func (s *Server) caller(r *http.Request) registry.Caller {
	return registry.Caller{
		Actor:   "admin",
		Address: validation.ClientAddress(r.Header.Get("X-Forwarded-For"), r.RemoteAddr, s.trustProxy),
		Agent:   validation.CallerAgent(r.UserAgent()),
	}
}

// rateLimitBody is the 429 response body.
type rateLimitBody struct {
	Error string `json:"error"`
	Reset int64  `json:"reset"`
}

// rateLimit admits requests to op per caller address under rule. When the
// bucket store fails the request is admitted and the failure logged.
func (s *Server) rateLimit(op string, rule ratelimit.Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ratelimit.Key(op, s.caller(r).Address)
			res, err := s.limiter.AdmitRule(r.Context(), key, rule, s.now())
			if err != nil {
				s.logger.WarnContext(r.Context(), "rate limiter unavailable, admitting request",
					"operation", op, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			reset := resetSeconds(res.ResetAt)
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))

			if !res.Allowed {
				s.metrics.RateLimited(op)
				writeJSON(w, http.StatusTooManyRequests, rateLimitBody{Error: "rate_limited", Reset: reset})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resetSeconds rounds t up to whole unix seconds.
func resetSeconds(t time.Time) int64 {
	sec := t.Unix()
	if t.Nanosecond() > 0 {
		sec++
	}
	return sec
}
