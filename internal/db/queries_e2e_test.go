//go:build e2e

package db

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/openmeet-team/surveystudio/internal/store"
	"github.com/openmeet-team/surveystudio/internal/store/storetest"
	"github.com/openmeet-team/surveystudio/internal/testutil"
)

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()

	pg, err := testutil.StartPostgres(ctx)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := pg.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	conn, err := sql.Open("postgres", pg.URI)
	require.NoError(t, err, "Failed to open database connection")
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.PingContext(ctx), "Failed to ping database")

	require.NoError(t, Migrate(ctx, conn), "Failed to run migrations")
	// Migrations are idempotent
	require.NoError(t, Migrate(ctx, conn))

	storetest.Run(t, func(t *testing.T) store.Store {
		_, err := conn.ExecContext(ctx, `TRUNCATE surveys CASCADE`)
		require.NoError(t, err)
		return NewQueries(conn)
	})
}
