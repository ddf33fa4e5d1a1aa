package server

import (
	"context"

	"github.com/amazingshop/user-service/users"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyPrincipal stores the authenticated account for the request
const ContextKeyPrincipal ContextKey = "principal"

// ContextWithPrincipal returns a context carrying the authenticated account.
func ContextWithPrincipal(ctx context.Context, principal *users.User) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, principal)
}

// PrincipalFromContext returns the authenticated account, or nil when the
// request is unauthenticated.
func PrincipalFromContext(ctx context.Context) *users.User {
	principal, _ := ctx.Value(ContextKeyPrincipal).(*users.User)
	return principal
}
