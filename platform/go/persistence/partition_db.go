package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mukando-hq/storekeeper/platform/go/tenant"
)

type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// PartitionDB wraps a pgx pool to execute queries inside a transaction whose
// search_path is pinned to exactly one partition schema. Every per-partition
// query in the system goes through WithPartition; the handle offers no way to
// address another tenant's tables.
type PartitionDB struct {
	pool         txBeginner
	globalSchema string
}

// PartitionDBConfig configures a PartitionDB.
type PartitionDBConfig struct {
	Pool *pgxpool.Pool
	// GlobalSchema holds the shared accounts/partitions tables.
	GlobalSchema string
}

// NewPartitionDB constructs a PartitionDB.
func NewPartitionDB(cfg PartitionDBConfig) *PartitionDB {
	if cfg.Pool == nil {
		panic("PartitionDB requires pool")
	}

	globalSchema := strings.TrimSpace(cfg.GlobalSchema)
	if globalSchema == "" {
		panic("PartitionDB requires global schema")
	}
	return &PartitionDB{pool: cfg.Pool, globalSchema: globalSchema}
}

// WithGlobal executes fn inside a transaction scoped to the shared schema only.
func (db *PartitionDB) WithGlobal(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT set_config('search_path', $1, false)`, db.globalSchema); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// WithPartition executes fn inside a transaction with search_path set to the
// partition schema alone. The schema name is validated against the canonical
// tenant_<identity> format before use so a corrupted reference can never widen
// the search path.
func (db *PartitionDB) WithPartition(ctx context.Context, space tenant.Space, fn func(tx pgx.Tx) error) error {
	if !tenant.ValidSchemaName(space.SchemaName) {
		return fmt.Errorf("invalid partition schema %q", space.SchemaName)
	}

	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT set_config('search_path', $1, false)`, space.SchemaName); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
