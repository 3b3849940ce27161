package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mukando-hq/storekeeper/platform/go/tenant"
)

// PendingApproval is a change proposed by non-owner staff awaiting owner
// sign-off. Payload is the serialized proposed change.
type PendingApproval struct {
	ApprovalID uuid.UUID       `db:"approval_id"`
	ActionType string          `db:"action_type"`
	ProposerID uuid.UUID       `db:"proposer_id"`
	Payload    json.RawMessage `db:"payload"`
	Status     string          `db:"status"`
	CreatedAt  time.Time       `db:"created_at"`
	ResolvedAt *time.Time      `db:"resolved_at"`
}

var (
	// ErrApprovalNotFound indicates a missing approval record.
	ErrApprovalNotFound = errors.New("approval not found")
	// ErrApprovalResolved indicates the approval already left the pending state.
	ErrApprovalResolved = errors.New("approval already resolved")
)

// ApprovalStore exposes persistence helpers for per-partition pending
// approvals.
type ApprovalStore struct {
	db *PartitionDB
}

// NewApprovalStore constructs an ApprovalStore over a PartitionDB.
func NewApprovalStore(db *PartitionDB) *ApprovalStore {
	if db == nil {
		panic("approval store requires partition db")
	}
	return &ApprovalStore{db: db}
}

const approvalColumns = "approval_id, action_type, proposer_id, payload, status, created_at, resolved_at"

// CreateApproval persists a new pending approval.
func (s *ApprovalStore) CreateApproval(ctx context.Context, space tenant.Space, actionType string, proposerID uuid.UUID, payload json.RawMessage) (PendingApproval, error) {
	var approval PendingApproval
	err := s.db.WithPartition(ctx, space, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, fmt.Sprintf(`
            INSERT INTO pending_approvals (approval_id, action_type, proposer_id, payload)
            VALUES ($1, $2, $3, $4)
            RETURNING %s
        `, approvalColumns), uuid.New(), actionType, proposerID, payload)

		var scanErr error
		approval, scanErr = scanApproval(row)
		return scanErr
	})
	if err != nil {
		return PendingApproval{}, err
	}

	return approval, nil
}

// GetApproval returns one approval by id.
func (s *ApprovalStore) GetApproval(ctx context.Context, space tenant.Space, approvalID uuid.UUID) (PendingApproval, error) {
	var approval PendingApproval
	err := s.db.WithPartition(ctx, space, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, fmt.Sprintf(`
            SELECT %s FROM pending_approvals WHERE approval_id = $1
        `, approvalColumns), approvalID)

		var scanErr error
		approval, scanErr = scanApproval(row)
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return ErrApprovalNotFound
		}
		return scanErr
	})
	if err != nil {
		return PendingApproval{}, err
	}

	return approval, nil
}

// ListPending returns approvals still awaiting a decision, oldest first.
func (s *ApprovalStore) ListPending(ctx context.Context, space tenant.Space) ([]PendingApproval, error) {
	var approvals []PendingApproval
	err := s.db.WithPartition(ctx, space, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, fmt.Sprintf(`
            SELECT %s FROM pending_approvals WHERE status = 'pending' ORDER BY created_at ASC
        `, approvalColumns))
		if err != nil {
			return fmt.Errorf("list pending approvals: %w", err)
		}
		defer rows.Close()

		approvals = make([]PendingApproval, 0)
		for rows.Next() {
			approval, scanErr := scanApproval(rows)
			if scanErr != nil {
				return fmt.Errorf("scan approval: %w", scanErr)
			}
			approvals = append(approvals, approval)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return approvals, nil
}

// ResolveApproval transitions a pending approval to its terminal status and
// applies the change effect inside the same transaction. The pending-only
// WHERE clause is the idempotency guard: re-resolving an already-resolved
// approval returns ErrApprovalResolved and apply never runs.
func (s *ApprovalStore) ResolveApproval(ctx context.Context, space tenant.Space, approvalID uuid.UUID, status string, apply func(tx pgx.Tx, approval PendingApproval) error) (PendingApproval, error) {
	var approval PendingApproval
	err := s.db.WithPartition(ctx, space, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, fmt.Sprintf(`
            UPDATE pending_approvals SET status = $1, resolved_at = NOW()
            WHERE approval_id = $2 AND status = 'pending'
            RETURNING %s
        `, approvalColumns), status, approvalID)

		var scanErr error
		approval, scanErr = scanApproval(row)
		if errors.Is(scanErr, pgx.ErrNoRows) {
			var exists bool
			if err := tx.QueryRow(ctx, `
                SELECT EXISTS (SELECT 1 FROM pending_approvals WHERE approval_id = $1)
            `, approvalID).Scan(&exists); err != nil {
				return err
			}
			if exists {
				return ErrApprovalResolved
			}
			return ErrApprovalNotFound
		}
		if scanErr != nil {
			return scanErr
		}

		if apply != nil {
			return apply(tx, approval)
		}
		return nil
	})
	if err != nil {
		return PendingApproval{}, err
	}

	return approval, nil
}

func scanApproval(row pgx.Row) (PendingApproval, error) {
	var approval PendingApproval

	if err := row.Scan(
		&approval.ApprovalID,
		&approval.ActionType,
		&approval.ProposerID,
		&approval.Payload,
		&approval.Status,
		&approval.CreatedAt,
		&approval.ResolvedAt,
	); err != nil {
		return PendingApproval{}, err
	}

	return approval, nil
}
