package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Account represents a row in the global accounts table. Accounts are shared
// across partitions; schema_name ties each one to its owner's partition.
type Account struct {
	AccountID    uuid.UUID  `db:"account_id"`
	Username     string     `db:"username"`
	PasswordHash string     `db:"password_hash"`
	Role         string     `db:"role"`
	DisplayName  *string    `db:"display_name"`
	Identity     *int64     `db:"identity"`
	ShopID       *uuid.UUID `db:"shop_id"`
	SchemaName   string     `db:"schema_name"`
	Active       bool       `db:"active"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

var (
	// ErrAccountNotFound indicates a missing account record.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountConflict indicates a uniqueness violation (username or linked identity).
	ErrAccountConflict = errors.New("account conflict")
)

// AccountStore exposes persistence helpers for the accounts table.
type AccountStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewAccountStore returns a store bound to the global schema.
func NewAccountStore(pool *pgxpool.Pool, globalSchema string) (*AccountStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	if strings.TrimSpace(globalSchema) == "" {
		return nil, errors.New("global schema is required")
	}

	return &AccountStore{pool: pool, schema: globalSchema}, nil
}

func (s *AccountStore) table() string {
	return pgx.Identifier{s.schema, "accounts"}.Sanitize()
}

const accountColumns = "account_id, username, password_hash, role, display_name, identity, shop_id, schema_name, active, created_at, updated_at"

// CreateAccountParams captures the fields required to insert a new account.
type CreateAccountParams struct {
	AccountID    uuid.UUID
	Username     string
	PasswordHash string
	Role         string
	DisplayName  *string
	Identity     *int64
	ShopID       *uuid.UUID
	SchemaName   string
}

// CreateAccount inserts a new account and returns the persisted record.
func (s *AccountStore) CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error) {
	if params.AccountID == uuid.Nil {
		return Account{}, errors.New("account id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (account_id, username, password_hash, role, display_name, identity, shop_id, schema_name)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING %s
    `, s.table(), accountColumns),
		params.AccountID,
		strings.TrimSpace(params.Username),
		params.PasswordHash,
		params.Role,
		params.DisplayName,
		params.Identity,
		params.ShopID,
		params.SchemaName,
	)

	account, err := scanAccount(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Account{}, ErrAccountConflict
		}
		return Account{}, err
	}

	return account, nil
}

// GetByUsername returns the account with the given username.
func (s *AccountStore) GetByUsername(ctx context.Context, username string) (Account, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE username = $1
    `, accountColumns, s.table()), strings.TrimSpace(username))

	return scanAccountOrNotFound(row)
}

// GetByID returns the account with the given id.
func (s *AccountStore) GetByID(ctx context.Context, accountID uuid.UUID) (Account, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE account_id = $1
    `, accountColumns, s.table()), accountID)

	return scanAccountOrNotFound(row)
}

// GetByIdentity returns the account currently linked to a chat identity.
func (s *AccountStore) GetByIdentity(ctx context.Context, identity int64) (Account, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE identity = $1
    `, accountColumns, s.table()), identity)

	return scanAccountOrNotFound(row)
}

// GetOwner returns the owner account of the given partition schema.
func (s *AccountStore) GetOwner(ctx context.Context, schemaName string) (Account, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE schema_name = $1 AND role = 'owner'
    `, accountColumns, s.table()), schemaName)

	return scanAccountOrNotFound(row)
}

// ListBySchema returns every account attached to a partition, owners first.
func (s *AccountStore) ListBySchema(ctx context.Context, schemaName string) ([]Account, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM %s
        WHERE schema_name = $1
        ORDER BY role = 'owner' DESC, created_at ASC
    `, accountColumns, s.table()), schemaName)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]Account, 0)
	for rows.Next() {
		account, scanErr := scanAccount(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan account: %w", scanErr)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

// UsernameExists reports whether the username is already taken.
func (s *AccountStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT EXISTS (SELECT 1 FROM %s WHERE username = $1)
    `, s.table()), strings.TrimSpace(username)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

// LinkIdentity binds a chat identity to the account, detaching it from any
// account it was previously linked to when steal is true.
func (s *AccountStore) LinkIdentity(ctx context.Context, accountID uuid.UUID, identity int64, steal bool) (Account, error) {
	if steal {
		if _, err := s.pool.Exec(ctx, fmt.Sprintf(`
            UPDATE %s SET identity = NULL, updated_at = NOW() WHERE identity = $1 AND account_id <> $2
        `, s.table()), identity, accountID); err != nil {
			return Account{}, fmt.Errorf("detach identity: %w", err)
		}
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s SET identity = $1, updated_at = NOW()
        WHERE account_id = $2
        RETURNING %s
    `, s.table(), accountColumns), identity, accountID)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		if isUniqueViolation(err) {
			return Account{}, ErrAccountConflict
		}
		return Account{}, err
	}

	return account, nil
}

// UpdatePasswordHash replaces the stored credential digest.
func (s *AccountStore) UpdatePasswordHash(ctx context.Context, accountID uuid.UUID, hash string) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        UPDATE %s SET password_hash = $1, updated_at = NOW() WHERE account_id = $2
    `, s.table()), hash, accountID)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// UpdateSchemaName corrects a drifted partition reference.
func (s *AccountStore) UpdateSchemaName(ctx context.Context, accountID uuid.UUID, schemaName string) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        UPDATE %s SET schema_name = $1, updated_at = NOW() WHERE account_id = $2
    `, s.table()), schemaName, accountID)
	if err != nil {
		return fmt.Errorf("update schema name: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// DeleteByUsername removes an account record.
func (s *AccountStore) DeleteByUsername(ctx context.Context, username string) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        DELETE FROM %s WHERE username = $1
    `, s.table()), strings.TrimSpace(username))
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func scanAccountOrNotFound(row pgx.Row) (Account, error) {
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return account, nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var account Account

	if err := row.Scan(
		&account.AccountID,
		&account.Username,
		&account.PasswordHash,
		&account.Role,
		&account.DisplayName,
		&account.Identity,
		&account.ShopID,
		&account.SchemaName,
		&account.Active,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return Account{}, err
	}

	return account, nil
}
