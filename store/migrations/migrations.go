// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package migrations embeds the PostgreSQL schema migrations.
package migrations

import "embed"

// Migrations holds the goose SQL migrations.
//
//go:embed *.sql
var Migrations embed.FS
