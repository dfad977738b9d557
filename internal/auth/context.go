// ABOUTME: Authentication context for tracking identity through request handlers
// ABOUTME: Provides WithIdentity/IdentityFromContext for propagating the verified user via context

package auth

import (
	"context"

	"github.com/aa-tracker/aa-tracker/internal/initdata"
)

// identityContextKey is the key type for storing the identity in context.Context.
type identityContextKey struct{}

// WithIdentity returns a new context with the verified identity attached.
func WithIdentity(ctx context.Context, id *initdata.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext retrieves the identity from the context, returning nil if not present.
func IdentityFromContext(ctx context.Context) *initdata.Identity {
	id, ok := ctx.Value(identityContextKey{}).(*initdata.Identity)
	if !ok {
		return nil
	}
	return id
}
