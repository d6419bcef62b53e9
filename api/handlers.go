// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/skills-registry/httperr"
	"github.com/stacklok/skills-registry/registry"
)

type dataResponse struct {
	Data any `json:"data"`
}

type pagedResponse struct {
	Data       any                 `json:"data"`
	Pagination registry.Pagination `json:"pagination"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	httperr.WriteJSON(w, code, v)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	h := s.svc.Health(r.Context())
	code := http.StatusOK
	if !h.OK {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, h)
}

func (s *Server) meta(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Meta())
}

func (s *Server) listSkills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, page, err := s.svc.ListSkills(r.Context(), registry.ListOptions{
		Query:        strings.TrimSpace(q.Get("query")),
		Tags:         splitList(q.Get("tags")),
		Capabilities: splitList(q.Get("capabilities")),
		Limit:        intParam(q.Get("limit")),
		Offset:       intParam(q.Get("offset")),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse{Data: items, Pagination: page})
}

func (s *Server) getSkill(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.GetSkill(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: d})
}

func (s *Server) listVersions(w http.ResponseWriter, r *http.Request) {
	vs, err := s.svc.ListVersions(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: vs})
}

func (s *Server) getVersion(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.GetVersion(r.Context(), chi.URLParam(r, "slug"), chi.URLParam(r, "version"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: v})
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	skills, page, err := s.svc.Export(r.Context(), intParam(q.Get("limit")), intParam(q.Get("offset")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse{Data: skills, Pagination: page})
}

func (s *Server) publishSkill(w http.ResponseWriter, r *http.Request) {
	var in registry.PublishSkillInput
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.svc.PublishSkill(r.Context(), in, s.caller(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse{Data: res})
}

func (s *Server) publishVersion(w http.ResponseWriter, r *http.Request) {
	var in registry.PublishVersionInput
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.svc.PublishVersion(r.Context(), chi.URLParam(r, "slug"), in, s.caller(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse{Data: res})
}

func (s *Server) auditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.AuditLog(r.Context(), intParam(r.URL.Query().Get("limit")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: entries})
}

// writeError renders err and logs server-side failures.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if httperr.Code(err) >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "error", err)
	}
	httperr.Write(w, err)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %w", registry.ErrInvalidInput, err)
	}
	return nil
}

// splitList parses a comma-separated query parameter.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// intParam parses a numeric query parameter; anything else reads as zero so
// the service defaults apply.
func intParam(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}
