// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package metrics defines the registry's Prometheus collectors.
//
// All recording methods are safe to call on a nil *Metrics, so components
// can take metrics as an optional dependency.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "skills_registry"

// Metrics holds the registry collectors.
type Metrics struct {
	reg *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	httpInflight  prometheus.Gauge
	publishes     *prometheus.CounterVec
	auditFailures *prometheus.CounterVec
	policyReloads *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
	hidden        *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A collector that is
// already registered is not an error.
func New(reg *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		reg: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_inflight_requests",
			Help:      "Requests currently being served.",
		}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Publish attempts by operation and result.",
		}, []string{"operation", "result"}),
		auditFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_failures_total",
			Help:      "Audit entries that could not be recorded.",
		}, []string{"reason"}),
		policyReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_reloads_total",
			Help:      "Policy document reloads by result.",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests refused by the rate limiter.",
		}, []string{"operation"}),
		hidden: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_hidden_versions_total",
			Help:      "Versions hidden from readers by policy reason.",
		}, []string{"reason"}),
	}

	for _, c := range []prometheus.Collector{
		m.httpRequests, m.httpDuration, m.httpInflight, m.publishes,
		m.auditFailures, m.policyReloads, m.rateLimited, m.hidden,
	} {
		if err := register(reg, c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RegisterPool exposes pgxpool statistics from stat.
func (m *Metrics) RegisterPool(stat func() *pgxpool.Stat) error {
	if m == nil {
		return nil
	}
	return register(m.reg, newPoolCollector(stat))
}

func register(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}

// Handler serves the registered metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Middleware instruments requests, labelling them with the chi route
// pattern so path parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.httpInflight.Inc()
		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			m.httpInflight.Dec()
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		}()
		next.ServeHTTP(rec, r)
	})
}

// Publish counts a publish attempt; result is "ok" or an error reason.
func (m *Metrics) Publish(operation, result string) {
	if m == nil {
		return
	}
	m.publishes.WithLabelValues(operation, result).Inc()
}

// AuditFailure counts a lost audit entry.
func (m *Metrics) AuditFailure(reason string) {
	if m == nil {
		return
	}
	m.auditFailures.WithLabelValues(reason).Inc()
}

// PolicyReload counts a policy reload attempt.
func (m *Metrics) PolicyReload(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.policyReloads.WithLabelValues(result).Inc()
}

// RateLimited counts a refused request.
func (m *Metrics) RateLimited(operation string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(operation).Inc()
}

// Hidden counts a version withheld by policy.
func (m *Metrics) Hidden(reason string) {
	if m == nil || reason == "" {
		return
	}
	m.hidden.WithLabelValues(reason).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
