// Package provisioning creates and verifies per-partition database schemas.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/mukando-hq/storekeeper/database"
	"github.com/mukando-hq/storekeeper/platform/go/tenant"
)

// DBProvisioner creates a partition schema and its base tables. Ensure is
// invoked on every interaction that needs tenant access, so every step must be
// an inexpensive no-op once the partition exists.
type DBProvisioner struct {
	pool *pgxpool.Pool
}

// NewDBProvisioner constructs a DBProvisioner.
func NewDBProvisioner(pool *pgxpool.Pool) *DBProvisioner {
	if pool == nil {
		panic("db provisioner requires pool")
	}
	return &DBProvisioner{pool: pool}
}

// Ensure creates the schema and base tables if absent. Idempotent: re-running
// against a provisioned partition changes nothing.
func (p *DBProvisioner) Ensure(ctx context.Context, space tenant.Space) error {
	if !tenant.ValidSchemaName(space.SchemaName) {
		return fmt.Errorf("invalid partition schema %q", space.SchemaName)
	}

	if _, err := p.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{space.SchemaName}.Sanitize()); err != nil {
		return fmt.Errorf("create partition schema: %w", err)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT set_config('search_path', $1, true)`, space.SchemaName); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}

	for _, stmt := range strings.Split(sqlassets.PartitionTablesSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure partition tables: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Check reports whether the partition schema exists with its sales table
// registered. Used to detect half-initialized partitions.
func (p *DBProvisioner) Check(ctx context.Context, space tenant.Space) (bool, error) {
	if !tenant.ValidSchemaName(space.SchemaName) {
		return false, fmt.Errorf("invalid partition schema %q", space.SchemaName)
	}

	var dummy int
	err := p.pool.QueryRow(ctx, `
        SELECT 1 FROM information_schema.schemata WHERE schema_name = $1
    `, space.SchemaName).Scan(&dummy)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check schema: %w", err)
	}

	var salesExists bool
	if err := p.pool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1
            FROM pg_class c
            JOIN pg_namespace n ON n.oid = c.relnamespace
            WHERE n.nspname = $1 AND c.relname = 'sales'
        )`, space.SchemaName).Scan(&salesExists); err != nil {
		return false, fmt.Errorf("check sales table: %w", err)
	}

	return salesExists, nil
}
