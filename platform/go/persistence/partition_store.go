package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/mukando-hq/storekeeper/database"
)

// Partition represents a row in the global partitions registry.
type Partition struct {
	OwnerIdentity int64      `db:"owner_identity"`
	SchemaName    string     `db:"schema_name"`
	ProvisionedAt *time.Time `db:"provisioned_at"`
	CreatedAt     time.Time  `db:"created_at"`
}

var (
	// ErrPartitionNotFound indicates a missing registry entry.
	ErrPartitionNotFound = errors.New("partition not found")
	// ErrPartitionConflict indicates a duplicate registration.
	ErrPartitionConflict = errors.New("partition conflict")
)

// BootstrapGlobalSchema creates the shared schema plus the partitions and
// accounts tables. Idempotent; invoked at startup and by integration tests.
func BootstrapGlobalSchema(ctx context.Context, pool *pgxpool.Pool, globalSchema string) error {
	if pool == nil {
		return errors.New("pool is required")
	}
	globalSchema = strings.TrimSpace(globalSchema)
	if globalSchema == "" {
		return errors.New("global schema is required")
	}

	if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{globalSchema}.Sanitize()); err != nil {
		return fmt.Errorf("create global schema: %w", err)
	}

	// The embedded assets use unqualified table names; pinning search_path for
	// the transaction lands them in the target schema.
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT set_config('search_path', $1, true)`, globalSchema); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}

	for _, ddl := range []string{sqlassets.PartitionsSQL, sqlassets.AccountsSQL} {
		for _, stmt := range strings.Split(ddl, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("bootstrap global tables: %w", err)
			}
		}
	}

	return tx.Commit(ctx)
}

// PartitionStore exposes persistence helpers for the partitions registry.
type PartitionStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewPartitionStore returns a store bound to the global schema.
func NewPartitionStore(pool *pgxpool.Pool, globalSchema string) (*PartitionStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	if strings.TrimSpace(globalSchema) == "" {
		return nil, errors.New("global schema is required")
	}

	return &PartitionStore{pool: pool, schema: globalSchema}, nil
}

func (s *PartitionStore) table() string {
	return pgx.Identifier{s.schema, "partitions"}.Sanitize()
}

// Get returns the registry entry for an owner identity.
func (s *PartitionStore) Get(ctx context.Context, ownerIdentity int64) (Partition, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT owner_identity, schema_name, provisioned_at, created_at
        FROM %s WHERE owner_identity = $1
    `, s.table()), ownerIdentity)

	return scanPartition(row)
}

// Register inserts a registry entry; registering the same owner twice returns
// the existing row unchanged.
func (s *PartitionStore) Register(ctx context.Context, ownerIdentity int64, schemaName string) (Partition, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (owner_identity, schema_name)
        VALUES ($1, $2)
        ON CONFLICT (owner_identity) DO UPDATE SET owner_identity = EXCLUDED.owner_identity
        RETURNING owner_identity, schema_name, provisioned_at, created_at
    `, s.table()), ownerIdentity, schemaName)

	partition, err := scanPartition(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Partition{}, ErrPartitionConflict
		}
		return Partition{}, err
	}

	return partition, nil
}

// List returns every registry entry, oldest first.
func (s *PartitionStore) List(ctx context.Context) ([]Partition, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT owner_identity, schema_name, provisioned_at, created_at
        FROM %s ORDER BY created_at
    `, s.table()))
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}
	defer rows.Close()

	var partitions []Partition
	for rows.Next() {
		var partition Partition
		if err := rows.Scan(&partition.OwnerIdentity, &partition.SchemaName, &partition.ProvisionedAt, &partition.CreatedAt); err != nil {
			return nil, err
		}
		partitions = append(partitions, partition)
	}
	return partitions, rows.Err()
}

// MarkProvisioned records the completion timestamp of schema provisioning.
func (s *PartitionStore) MarkProvisioned(ctx context.Context, ownerIdentity int64) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        UPDATE %s SET provisioned_at = NOW() WHERE owner_identity = $1
    `, s.table()), ownerIdentity)
	if err != nil {
		return fmt.Errorf("mark provisioned: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPartitionNotFound
	}
	return nil
}

func scanPartition(row pgx.Row) (Partition, error) {
	var partition Partition

	if err := row.Scan(&partition.OwnerIdentity, &partition.SchemaName, &partition.ProvisionedAt, &partition.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Partition{}, ErrPartitionNotFound
		}
		return Partition{}, err
	}

	return partition, nil
}
