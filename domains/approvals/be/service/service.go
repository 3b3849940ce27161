// Package service implements the owner approval workflow. Staff below owner
// propose catalog changes; the owner approves or rejects them, and an
// approved change is applied in the same transaction that resolves the
// approval so a crash can never apply without resolving or resolve without
// applying.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mukando-hq/storekeeper/platform/go/chat"
	"github.com/mukando-hq/storekeeper/platform/go/persistence"
	"github.com/mukando-hq/storekeeper/platform/go/tenant"
)

// Action types.
const (
	ActionAddProduct  = "add_product"
	ActionStockUpdate = "stock_update"
)

// Approval statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Domain sentinel errors.
var (
	ErrNotFound        = errors.New("approval not found")
	ErrAlreadyResolved = errors.New("approval already resolved")
	ErrOwnerOnly       = errors.New("only the owner can resolve approvals")
	ErrUnknownAction   = errors.New("unknown approval action")
)

// AddProductPayload is the serialized form of a proposed product.
type AddProductPayload struct {
	ShopID            uuid.UUID       `json:"shop_id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	Unit              string          `json:"unit"`
	InitialQuantity   int             `json:"initial_quantity"`
	LowStockThreshold int             `json:"low_stock_threshold"`
}

// StockUpdatePayload is the serialized form of a proposed stock adjustment.
type StockUpdatePayload struct {
	ShopID    uuid.UUID `json:"shop_id"`
	ProductID uuid.UUID `json:"product_id"`
	Delta     int       `json:"delta"`
}

// Repository abstracts the partition-scoped approval store.
type Repository interface {
	CreateApproval(ctx context.Context, space tenant.Space, actionType string, proposerID uuid.UUID, payload json.RawMessage) (persistence.PendingApproval, error)
	GetApproval(ctx context.Context, space tenant.Space, approvalID uuid.UUID) (persistence.PendingApproval, error)
	ListPending(ctx context.Context, space tenant.Space) ([]persistence.PendingApproval, error)
	ResolveApproval(ctx context.Context, space tenant.Space, approvalID uuid.UUID, status string, apply func(tx pgx.Tx, approval persistence.PendingApproval) error) (persistence.PendingApproval, error)
}

// Accounts looks up the partition owner and the proposer for notifications.
type Accounts interface {
	Owner(ctx context.Context, schemaName string) (persistence.Account, error)
	FindByID(ctx context.Context, accountID uuid.UUID) (persistence.Account, error)
}

// Service implements the approval workflow.
type Service struct {
	repo     Repository
	accounts Accounts
	sender   chat.Sender
}

// New constructs an approvals Service. The sender may be nil in contexts
// without a chat transport (tests, CLI tooling); notifications are then
// skipped.
func New(repo Repository, accounts Accounts, sender chat.Sender) *Service {
	if repo == nil {
		panic("approvals repository is required")
	}
	if accounts == nil {
		panic("approvals accounts lookup is required")
	}
	return &Service{repo: repo, accounts: accounts, sender: sender}
}

// ProposeAddProduct records a pending product addition and notifies the
// owner.
func (s *Service) ProposeAddProduct(ctx context.Context, space tenant.Space, proposer persistence.Account, payload AddProductPayload) (persistence.PendingApproval, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return persistence.PendingApproval{}, fmt.Errorf("encode payload: %w", err)
	}

	approval, err := s.repo.CreateApproval(ctx, space, ActionAddProduct, proposer.AccountID, raw)
	if err != nil {
		return persistence.PendingApproval{}, err
	}

	s.notifyOwner(ctx, space, fmt.Sprintf(
		"%s proposed a new product: %s at %s. Reply with the approvals menu to decide.",
		describeAccount(proposer), payload.Name, payload.Price.StringFixed(2),
	))
	return approval, nil
}

// ProposeStockUpdate records a pending stock adjustment and notifies the
// owner.
func (s *Service) ProposeStockUpdate(ctx context.Context, space tenant.Space, proposer persistence.Account, payload StockUpdatePayload) (persistence.PendingApproval, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return persistence.PendingApproval{}, fmt.Errorf("encode payload: %w", err)
	}

	approval, err := s.repo.CreateApproval(ctx, space, ActionStockUpdate, proposer.AccountID, raw)
	if err != nil {
		return persistence.PendingApproval{}, err
	}

	s.notifyOwner(ctx, space, fmt.Sprintf(
		"%s proposed a stock change of %+d units. Reply with the approvals menu to decide.",
		describeAccount(proposer), payload.Delta,
	))
	return approval, nil
}

// ListPending returns approvals awaiting the owner's decision, oldest first.
func (s *Service) ListPending(ctx context.Context, space tenant.Space) ([]persistence.PendingApproval, error) {
	return s.repo.ListPending(ctx, space)
}

// Approve applies the proposed change and marks the approval approved, both
// in one transaction. Resolving a non-pending approval fails with
// ErrAlreadyResolved regardless of how many times the owner taps the button.
func (s *Service) Approve(ctx context.Context, space tenant.Space, resolver persistence.Account, approvalID uuid.UUID) (persistence.PendingApproval, error) {
	if resolver.Role != "owner" {
		return persistence.PendingApproval{}, ErrOwnerOnly
	}

	approval, err := s.repo.ResolveApproval(ctx, space, approvalID, StatusApproved, func(tx pgx.Tx, approval persistence.PendingApproval) error {
		return applyApproval(ctx, tx, approval)
	})
	if err != nil {
		return persistence.PendingApproval{}, mapPersistenceError(err)
	}

	s.notifyProposer(ctx, approval, "Your proposed change was approved and applied.")
	return approval, nil
}

// Reject marks the approval rejected without applying anything.
func (s *Service) Reject(ctx context.Context, space tenant.Space, resolver persistence.Account, approvalID uuid.UUID) (persistence.PendingApproval, error) {
	if resolver.Role != "owner" {
		return persistence.PendingApproval{}, ErrOwnerOnly
	}

	approval, err := s.repo.ResolveApproval(ctx, space, approvalID, StatusRejected, nil)
	if err != nil {
		return persistence.PendingApproval{}, mapPersistenceError(err)
	}

	s.notifyProposer(ctx, approval, "Your proposed change was rejected.")
	return approval, nil
}

// Describe renders an approval for the owner's decision menu.
func Describe(approval persistence.PendingApproval) string {
	switch approval.ActionType {
	case ActionAddProduct:
		var payload AddProductPayload
		if err := json.Unmarshal(approval.Payload, &payload); err != nil {
			return "unreadable proposal"
		}
		return fmt.Sprintf("Add product %q at %s (%d in stock)", payload.Name, payload.Price.StringFixed(2), payload.InitialQuantity)
	case ActionStockUpdate:
		var payload StockUpdatePayload
		if err := json.Unmarshal(approval.Payload, &payload); err != nil {
			return "unreadable proposal"
		}
		return fmt.Sprintf("Adjust stock by %+d units", payload.Delta)
	default:
		return approval.ActionType
	}
}

// applyApproval decodes the payload and executes the proposed change inside
// the resolving transaction.
func applyApproval(ctx context.Context, tx pgx.Tx, approval persistence.PendingApproval) error {
	switch approval.ActionType {
	case ActionAddProduct:
		var payload AddProductPayload
		if err := json.Unmarshal(approval.Payload, &payload); err != nil {
			return fmt.Errorf("decode add product payload: %w", err)
		}
		shopID := payload.ShopID
		_, err := persistence.InsertProductTx(ctx, tx, persistence.CreateProductParams{
			ProductID:         uuid.New(),
			ShopID:            &shopID,
			Name:              strings.TrimSpace(payload.Name),
			Price:             payload.Price,
			Unit:              strings.TrimSpace(payload.Unit),
			InitialQuantity:   payload.InitialQuantity,
			LowStockThreshold: payload.LowStockThreshold,
		})
		return err
	case ActionStockUpdate:
		var payload StockUpdatePayload
		if err := json.Unmarshal(approval.Payload, &payload); err != nil {
			return fmt.Errorf("decode stock update payload: %w", err)
		}
		return persistence.AdjustStockTx(ctx, tx, payload.ProductID, payload.ShopID, payload.Delta)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, approval.ActionType)
	}
}

func (s *Service) notifyOwner(ctx context.Context, space tenant.Space, text string) {
	if s.sender == nil {
		return
	}
	owner, err := s.accounts.Owner(ctx, space.SchemaName)
	if err != nil || owner.Identity == nil {
		return
	}
	_ = s.sender.SendMessage(ctx, *owner.Identity, text, nil)
}

func (s *Service) notifyProposer(ctx context.Context, approval persistence.PendingApproval, text string) {
	if s.sender == nil {
		return
	}
	proposer, err := s.accounts.FindByID(ctx, approval.ProposerID)
	if err != nil || proposer.Identity == nil {
		return
	}
	_ = s.sender.SendMessage(ctx, *proposer.Identity, text, nil)
}

func describeAccount(account persistence.Account) string {
	if account.DisplayName != nil && strings.TrimSpace(*account.DisplayName) != "" {
		return *account.DisplayName
	}
	return account.Username
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrApprovalNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrApprovalResolved):
		return ErrAlreadyResolved
	default:
		return err
	}
}
