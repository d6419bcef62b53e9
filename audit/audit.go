// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package audit records write-path actions without letting audit failures
// affect the action being recorded.
package audit

//go:generate mockgen -copyright_file=../.github/license-header.txt -source=audit.go -destination=mocks/mock_sink.go -package=mocks Sink

import (
	"context"
	"time"
)

// Action identifies the kind of write being audited.
type Action string

// Audited actions.
const (
	ActionCreateSkill Action = "create_skill"
	ActionAddVersion  Action = "add_version"
)

// Entry is one append-only audit record.
type Entry struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Action        Action    `json:"action"`
	Slug          string    `json:"slug"`
	Version       string    `json:"version"`
	Digest        string    `json:"contentHash"`
	Actor         string    `json:"actor"`
	CallerAddress string    `json:"ip,omitempty"`
	CallerAgent   string    `json:"userAgent,omitempty"`
}

// Sink persists audit entries.
type Sink interface {
	RecordAuditEvent(ctx context.Context, entry Entry) error
}

// Recorder accepts audit entries. Record never fails and never blocks on storage.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}
