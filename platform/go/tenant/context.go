package tenant

import (
	"context"
)

// Space captures the resolved partition routing metadata for one interaction.
// It is attached to the context by the dispatcher once the requesting identity
// has been mapped to a store owner.
type Space struct {
	OwnerIdentity int64
	SchemaName    string
}

type ctxKey string

const spaceKey ctxKey = "STOREKEEPER_TENANT_SPACE"

// WithSpace returns a derived context carrying the partition Space.
func WithSpace(ctx context.Context, space Space) context.Context {
	return context.WithValue(ctx, spaceKey, space)
}

// FromContext extracts the partition Space and a boolean indicating presence.
func FromContext(ctx context.Context) (Space, bool) {
	v := ctx.Value(spaceKey)
	if v == nil {
		return Space{}, false
	}

	space, ok := v.(Space)
	return space, ok
}
