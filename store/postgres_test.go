// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPostgres(t *testing.T) { //nolint:paralleltest // Shares one database
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pg, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pg.Close)
	require.NoError(t, pg.Migrate(ctx))

	runStoreSuite(t, func(t *testing.T) Store {
		t.Helper()
		_, err := pg.pool.Exec(ctx, `TRUNCATE audit_events, skill_versions, skills`)
		require.NoError(t, err)
		return pg
	})
}
