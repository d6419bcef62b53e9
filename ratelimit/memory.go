// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepThreshold is the bucket count above which expired buckets are dropped.
const sweepThreshold = 10000

type bucket struct {
	count   int64
	resetAt time.Time
}

// MemoryStore keeps buckets in process memory. It suits single-instance
// deployments.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*bucket)}
}

// Increment implements Store.
func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration, now time.Time) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		if len(s.buckets) >= sweepThreshold {
			s.sweepLocked(now)
		}
		b = &bucket{resetAt: now.Add(window)}
		s.buckets[key] = b
	}
	b.count++

	return b.count, b.resetAt, nil
}

// Reset drops every bucket.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.buckets)
}

// Len returns the number of buckets held.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.buckets)
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for k, b := range s.buckets {
		if !now.Before(b.resetAt) {
			delete(s.buckets, k)
		}
	}
}
