package middleware

import (
	"context"
	"net/http"

	"github.com/casamar/aduanet/internal/authz"
)

type contextKey string

const identityKey contextKey = "identity"

// SetIdentity stores the authenticated caller in the context.
func SetIdentity(ctx context.Context, id *authz.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity returns the caller identity, or nil when the request was not
// authenticated. Downstream code treats nil as "sees nothing".
func GetIdentity(r *http.Request) *authz.Identity {
	id, _ := r.Context().Value(identityKey).(*authz.Identity)
	return id
}
