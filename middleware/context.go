package middleware

import (
	"context"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/harborline/shipment-tracker/authn"
)

// Context key type to avoid collisions
type contextKey string

const (
	// IdentityKey is the context key for the verified identity
	IdentityKey contextKey = "identity"
)

// GetIdentityFromContext retrieves the verified identity from context
func GetIdentityFromContext(ctx context.Context) *authn.Identity {
	if val := ctx.Value(IdentityKey); val != nil {
		if identity, ok := val.(*authn.Identity); ok {
			return identity
		}
	}
	return nil
}

// WithIdentity adds a verified identity to the context
func WithIdentity(ctx context.Context, identity *authn.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// GetRequestIDFromContext retrieves the chi request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}
