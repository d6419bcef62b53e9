// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultQueueSize is the number of entries buffered before new ones are dropped.
	DefaultQueueSize = 256

	// DefaultWriteTimeout bounds a single sink write.
	DefaultWriteTimeout = 5 * time.Second
)

// Failure reasons passed to the failure hook.
const (
	FailureQueueFull = "queue_full"
	FailureClosed    = "closed"
	FailureSink      = "sink_error"
)

type item struct {
	ctx   context.Context
	entry Entry
}

// AsyncRecorder queues entries and writes them to a Sink from a single
// background worker.
type AsyncRecorder struct {
	sink         Sink
	logger       *slog.Logger
	writeTimeout time.Duration
	onFailure    func(reason string)
	now          func() time.Time

	queue  chan item
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// Option configures an AsyncRecorder.
type Option func(*AsyncRecorder)

// WithQueueSize sets the queue capacity. Non-positive values are ignored.
func WithQueueSize(n int) Option {
	return func(r *AsyncRecorder) {
		if n > 0 {
			r.queue = make(chan item, n)
		}
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(r *AsyncRecorder) {
		r.logger = l
	}
}

// WithWriteTimeout bounds each sink write.
func WithWriteTimeout(d time.Duration) Option {
	return func(r *AsyncRecorder) {
		r.writeTimeout = d
	}
}

// WithFailureHook registers fn to be called whenever an entry is lost.
func WithFailureHook(fn func(reason string)) Option {
	return func(r *AsyncRecorder) {
		r.onFailure = fn
	}
}

// NewAsyncRecorder creates an AsyncRecorder and starts its worker. Call Close
// to drain the queue and stop it.
func NewAsyncRecorder(sink Sink, opts ...Option) *AsyncRecorder {
	r := &AsyncRecorder{
		sink:         sink,
		logger:       slog.New(slog.DiscardHandler),
		writeTimeout: DefaultWriteTimeout,
		now:          time.Now,
		queue:        make(chan item, DefaultQueueSize),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	go r.run()
	return r
}

// Record enqueues entry. Missing IDs and timestamps are filled in. If the
// queue is full or the recorder is closed the entry is dropped and reported.
func (r *AsyncRecorder) Record(ctx context.Context, entry Entry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.now().UTC()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.fail(ctx, entry, FailureClosed, nil)
		return
	}

	select {
	case r.queue <- item{ctx: context.WithoutCancel(ctx), entry: entry}:
	default:
		r.fail(ctx, entry, FailureQueueFull, nil)
	}
}

// Close stops accepting entries and waits for queued ones to be written or
// for ctx to end.
func (r *AsyncRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *AsyncRecorder) run() {
	defer close(r.done)

	for it := range r.queue {
		r.write(it)
	}
}

func (r *AsyncRecorder) write(it item) {
	ctx, cancel := context.WithTimeout(it.ctx, r.writeTimeout)
	defer cancel()

	if err := r.sink.RecordAuditEvent(ctx, it.entry); err != nil {
		r.fail(it.ctx, it.entry, FailureSink, err)
	}
}

func (r *AsyncRecorder) fail(ctx context.Context, e Entry, reason string, err error) {
	attrs := []any{
		"reason", reason,
		"action", e.Action,
		"slug", e.Slug,
		"version", e.Version,
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	r.logger.ErrorContext(ctx, "audit entry lost", attrs...)

	if r.onFailure != nil {
		r.onFailure(reason)
	}
}
