// Package service manages staff and owner accounts: credentials, roles, and
// the link between an account and its chat identity.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mukando-hq/storekeeper/platform/go/persistence"
	"github.com/mukando-hq/storekeeper/platform/go/tenant"
)

// Account roles.
const (
	RoleOwner      = "owner"
	RoleAdmin      = "admin"
	RoleShopkeeper = "shopkeeper"
)

// Domain sentinel errors.
var (
	ErrNotFound           = errors.New("account not found")
	ErrConflict           = errors.New("account conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrIdentityLinked     = errors.New("identity already linked to another account")
	ErrOwnerProtected     = errors.New("owner account cannot be deleted")
	ErrUsernameExhausted  = errors.New("username space exhausted")
)

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Message string
}

func (v *ValidationError) Error() string {
	return v.Message
}

// Repository abstracts persistence over the global accounts table.
type Repository interface {
	CreateAccount(ctx context.Context, params persistence.CreateAccountParams) (persistence.Account, error)
	GetByUsername(ctx context.Context, username string) (persistence.Account, error)
	GetByID(ctx context.Context, accountID uuid.UUID) (persistence.Account, error)
	GetByIdentity(ctx context.Context, identity int64) (persistence.Account, error)
	GetOwner(ctx context.Context, schemaName string) (persistence.Account, error)
	ListBySchema(ctx context.Context, schemaName string) ([]persistence.Account, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	LinkIdentity(ctx context.Context, accountID uuid.UUID, identity int64, steal bool) (persistence.Account, error)
	UpdatePasswordHash(ctx context.Context, accountID uuid.UUID, hash string) error
	UpdateSchemaName(ctx context.Context, accountID uuid.UUID, schemaName string) error
	DeleteByUsername(ctx context.Context, username string) error
}

// Credentials is a one-time view of a generated username and password. The
// plaintext is never stored and never retrievable again.
type Credentials struct {
	Username string
	Password string
}

// Service implements the credential store.
type Service struct {
	repo Repository
}

// New constructs an accounts Service backed by the provided repository.
func New(repo Repository) *Service {
	if repo == nil {
		panic("accounts repository is required")
	}
	return &Service{repo: repo}
}

const (
	passwordLength      = 10
	passwordAlphabet    = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ23456789"
	maxUsernameAttempts = 50
)

// CreateInput describes a staff account to create. ShopName feeds the
// generated username's slug segment.
type CreateInput struct {
	Role        string
	ShopID      *uuid.UUID
	ShopName    string
	DisplayName *string
	SchemaName  string
}

// CreateAccount generates credentials for a new staff account, stores only
// the bcrypt digest, and returns the plaintext exactly once.
func (s *Service) CreateAccount(ctx context.Context, input CreateInput) (persistence.Account, Credentials, error) {
	if input.Role != RoleAdmin && input.Role != RoleShopkeeper {
		return persistence.Account{}, Credentials{}, &ValidationError{Message: "role must be admin or shopkeeper"}
	}
	if strings.TrimSpace(input.SchemaName) == "" {
		return persistence.Account{}, Credentials{}, &ValidationError{Message: "partition reference is required"}
	}

	username, err := s.generateUsername(ctx, input.Role, input.ShopName)
	if err != nil {
		return persistence.Account{}, Credentials{}, err
	}

	password, err := generatePassword(passwordLength)
	if err != nil {
		return persistence.Account{}, Credentials{}, fmt.Errorf("generate password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return persistence.Account{}, Credentials{}, fmt.Errorf("hash password: %w", err)
	}

	account, err := s.repo.CreateAccount(ctx, persistence.CreateAccountParams{
		AccountID:    uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         input.Role,
		DisplayName:  input.DisplayName,
		ShopID:       input.ShopID,
		SchemaName:   input.SchemaName,
	})
	if err != nil {
		return persistence.Account{}, Credentials{}, mapPersistenceError(err)
	}

	return account, Credentials{Username: username, Password: password}, nil
}

// RegisterOwner creates the owner account for a first-contact identity. The
// identity link is set immediately; owners never log in with credentials from
// the chat side, but the password still allows recovery tooling.
func (s *Service) RegisterOwner(ctx context.Context, identity int64) (persistence.Account, Credentials, error) {
	username := "owner" + strconv.FormatInt(identity, 10)

	password, err := generatePassword(passwordLength)
	if err != nil {
		return persistence.Account{}, Credentials{}, fmt.Errorf("generate password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return persistence.Account{}, Credentials{}, fmt.Errorf("hash password: %w", err)
	}

	account, err := s.repo.CreateAccount(ctx, persistence.CreateAccountParams{
		AccountID:    uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         RoleOwner,
		Identity:     &identity,
		SchemaName:   tenant.BuildSchemaName(identity),
	})
	if err != nil {
		return persistence.Account{}, Credentials{}, mapPersistenceError(err)
	}

	return account, Credentials{Username: username, Password: password}, nil
}

// FindByIdentity returns the account linked to a chat identity.
func (s *Service) FindByIdentity(ctx context.Context, identity int64) (persistence.Account, error) {
	account, err := s.repo.GetByIdentity(ctx, identity)
	if err != nil {
		return persistence.Account{}, mapPersistenceError(err)
	}
	return account, nil
}

// FindByID returns an account by its id.
func (s *Service) FindByID(ctx context.Context, accountID uuid.UUID) (persistence.Account, error) {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return persistence.Account{}, mapPersistenceError(err)
	}
	return account, nil
}

// FindByUsername returns an account by its username.
func (s *Service) FindByUsername(ctx context.Context, username string) (persistence.Account, error) {
	account, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return persistence.Account{}, mapPersistenceError(err)
	}
	return account, nil
}

// Owner returns the owner account of a partition, used for approval
// notifications.
func (s *Service) Owner(ctx context.Context, schemaName string) (persistence.Account, error) {
	account, err := s.repo.GetOwner(ctx, schemaName)
	if err != nil {
		return persistence.Account{}, mapPersistenceError(err)
	}
	return account, nil
}

// ListStaff returns every account in a partition, owner first.
func (s *Service) ListStaff(ctx context.Context, schemaName string) ([]persistence.Account, error) {
	return s.repo.ListBySchema(ctx, schemaName)
}

// Authenticate verifies a username/password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (persistence.Account, error) {
	account, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, persistence.ErrAccountNotFound) {
			return persistence.Account{}, ErrInvalidCredentials
		}
		return persistence.Account{}, err
	}

	if !account.Active {
		return persistence.Account{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return persistence.Account{}, ErrInvalidCredentials
	}

	return account, nil
}

// LinkIdentity binds a chat identity to an account after a successful login.
// If the identity is already linked to a different account the link is
// refused unless switchDevice was explicitly confirmed, in which case the old
// link is overwritten.
func (s *Service) LinkIdentity(ctx context.Context, account persistence.Account, identity int64, switchDevice bool) (persistence.Account, error) {
	existing, err := s.repo.GetByIdentity(ctx, identity)
	if err != nil && !errors.Is(err, persistence.ErrAccountNotFound) {
		return persistence.Account{}, err
	}
	if err == nil && existing.AccountID != account.AccountID && !switchDevice {
		return persistence.Account{}, ErrIdentityLinked
	}

	linked, err := s.repo.LinkIdentity(ctx, account.AccountID, identity, switchDevice)
	if err != nil {
		return persistence.Account{}, mapPersistenceError(err)
	}

	return linked, nil
}

// ResetPassword replaces an account's password and returns the new plaintext
// exactly once.
func (s *Service) ResetPassword(ctx context.Context, username string) (string, error) {
	account, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", mapPersistenceError(err)
	}

	password, err := generatePassword(passwordLength)
	if err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	if err := s.repo.UpdatePasswordHash(ctx, account.AccountID, string(hash)); err != nil {
		return "", mapPersistenceError(err)
	}

	return password, nil
}

// DeleteAccount removes a staff account. Owner accounts are protected.
func (s *Service) DeleteAccount(ctx context.Context, username string) error {
	account, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return mapPersistenceError(err)
	}

	if account.Role == RoleOwner {
		return ErrOwnerProtected
	}

	if err := s.repo.DeleteByUsername(ctx, account.Username); err != nil {
		return mapPersistenceError(err)
	}

	return nil
}

// generateUsername builds role-prefixed usernames like keeper_mainstreet,
// keeper_mainstreet2, ... The disambiguation loop is bounded so pathological
// shop names cannot retry forever.
func (s *Service) generateUsername(ctx context.Context, role, shopName string) (string, error) {
	prefix := "keeper"
	if role == RoleAdmin {
		prefix = "admin"
	}

	slug := tenant.Slugify(shopName)
	base := prefix
	if slug != "" {
		base = prefix + "_" + slug
	}

	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		candidate := base
		if attempt > 0 {
			candidate = base + strconv.Itoa(attempt+1)
		}

		exists, err := s.repo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}

	return "", ErrUsernameExhausted
}

func generatePassword(length int) (string, error) {
	max := big.NewInt(int64(len(passwordAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = passwordAlphabet[n.Int64()]
	}
	return string(b), nil
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrAccountNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrAccountConflict):
		return ErrConflict
	default:
		return err
	}
}
