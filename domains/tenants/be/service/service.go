// Package service resolves chat identities to their isolated data partitions.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mukando-hq/storekeeper/platform/go/persistence"
	"github.com/mukando-hq/storekeeper/platform/go/tenant"
)

// Errors returned by the service layer.
var (
	ErrNotFound     = errors.New("partition not found")
	ErrProvisioning = errors.New("partition provisioning failed")
)

// Registry abstracts the global partition registry.
type Registry interface {
	Get(ctx context.Context, ownerIdentity int64) (persistence.Partition, error)
	Register(ctx context.Context, ownerIdentity int64, schemaName string) (persistence.Partition, error)
	MarkProvisioned(ctx context.Context, ownerIdentity int64) error
}

// Provisioner creates the physical schema for a partition.
type Provisioner interface {
	Ensure(ctx context.Context, space tenant.Space) error
}

// SchemaCorrector persists a corrected partition reference on an account.
type SchemaCorrector interface {
	UpdateSchemaName(ctx context.Context, accountID uuid.UUID, schemaName string) error
}

// Service provides partition resolution and lazy provisioning.
type Service struct {
	registry    Registry
	provisioner Provisioner
	logger      *zap.Logger
}

// New constructs a Service with required dependencies.
func New(registry Registry, provisioner Provisioner, logger *zap.Logger) *Service {
	if registry == nil {
		panic("partition registry is required")
	}
	if provisioner == nil {
		panic("partition provisioner is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{registry: registry, provisioner: provisioner, logger: logger}
}

// Ensure registers and provisions the partition for an owner identity.
// Idempotent: it is invoked on every interaction that needs tenant access, not
// just first contact. A provisioning failure means the caller must not proceed
// against a half-initialized partition.
func (s *Service) Ensure(ctx context.Context, ownerIdentity int64) (tenant.Space, error) {
	schemaName := tenant.BuildSchemaName(ownerIdentity)
	space := tenant.Space{OwnerIdentity: ownerIdentity, SchemaName: schemaName}

	partition, err := s.registry.Register(ctx, ownerIdentity, schemaName)
	if err != nil {
		return tenant.Space{}, fmt.Errorf("%w: register: %v", ErrProvisioning, err)
	}

	if err := s.provisioner.Ensure(ctx, space); err != nil {
		return tenant.Space{}, fmt.Errorf("%w: %v", ErrProvisioning, err)
	}

	if partition.ProvisionedAt == nil {
		if err := s.registry.MarkProvisioned(ctx, ownerIdentity); err != nil {
			return tenant.Space{}, fmt.Errorf("%w: mark provisioned: %v", ErrProvisioning, err)
		}
		s.logger.Info("partition provisioned",
			zap.Int64("owner_identity", ownerIdentity),
			zap.String("schema", schemaName),
		)
	}

	return space, nil
}

// Resolve returns the partition space for an owner identity without
// provisioning anything.
func (s *Service) Resolve(ctx context.Context, ownerIdentity int64) (tenant.Space, error) {
	partition, err := s.registry.Get(ctx, ownerIdentity)
	if err != nil {
		if errors.Is(err, persistence.ErrPartitionNotFound) {
			return tenant.Space{}, ErrNotFound
		}
		return tenant.Space{}, err
	}

	return tenant.Space{OwnerIdentity: partition.OwnerIdentity, SchemaName: partition.SchemaName}, nil
}

// SpaceForAccount returns the partition space an account operates in. For
// owner accounts the stored reference is cross-checked against the name
// derived from the owner's linked identity; a mismatch is a data-integrity
// violation that is corrected and persisted, never trusted.
func (s *Service) SpaceForAccount(ctx context.Context, account persistence.Account, corrector SchemaCorrector) (tenant.Space, error) {
	schemaName := account.SchemaName

	if account.Role == "owner" && account.Identity != nil {
		derived := tenant.BuildSchemaName(*account.Identity)
		if schemaName != derived {
			s.logger.Warn("partition reference drift detected; correcting",
				zap.String("username", account.Username),
				zap.String("stored", schemaName),
				zap.String("derived", derived),
			)
			if corrector != nil {
				if err := corrector.UpdateSchemaName(ctx, account.AccountID, derived); err != nil {
					return tenant.Space{}, fmt.Errorf("correct partition reference: %w", err)
				}
			}
			schemaName = derived
		}
	}

	if !tenant.ValidSchemaName(schemaName) {
		return tenant.Space{}, fmt.Errorf("account %s has invalid partition reference %q", account.Username, schemaName)
	}

	ownerIdentity, err := tenant.OwnerIdentityFromSchema(schemaName)
	if err != nil {
		return tenant.Space{}, err
	}

	return tenant.Space{OwnerIdentity: ownerIdentity, SchemaName: schemaName}, nil
}
