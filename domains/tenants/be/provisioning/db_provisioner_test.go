package provisioning

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/mukando-hq/storekeeper/platform/go/tenant"
)

func testPool(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	url, ok := os.LookupEnv("TEST_DATABASE_URL")
	if !ok || strings.TrimSpace(url) == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}

	pool, err := pgxpool.New(context.Background(), url)
	if err != nil {
		t.Fatalf("create test pool: %v", err)
	}

	return pool, pool.Close
}

func TestEnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := testPool(t)
	defer cleanup()

	space := tenant.Space{OwnerIdentity: 990001, SchemaName: tenant.BuildSchemaName(990001)}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+space.SchemaName+" CASCADE")
	})

	prov := NewDBProvisioner(pool)

	require.NoError(t, prov.Ensure(ctx, space))

	ready, err := prov.Check(ctx, space)
	require.NoError(t, err)
	require.True(t, ready)

	// Second run must be a no-op, not a failure or a duplicate set of tables.
	require.NoError(t, prov.Ensure(ctx, space))

	var tables int
	require.NoError(t, pool.QueryRow(ctx, `
        SELECT COUNT(*) FROM information_schema.tables
        WHERE table_schema = $1 AND table_name = 'sales'
    `, space.SchemaName).Scan(&tables))
	require.Equal(t, 1, tables)
}

func TestEnsureRejectsMalformedSchema(t *testing.T) {
	t.Parallel()

	prov := &DBProvisioner{pool: nil}
	err := prov.Ensure(context.Background(), tenant.Space{SchemaName: "tenant_x; DROP SCHEMA public"})
	require.Error(t, err)
}
