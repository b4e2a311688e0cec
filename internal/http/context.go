package http

import (
	"context"

	"github.com/example/shift-scheduler/internal/application"
)

type principalKey struct{}

// ContextWithPrincipal is called by RequireSession once the token checks out.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext reports false outside the session middleware, where
// handlers see the zero Principal (no user, not an administrator).
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(application.Principal)
	return principal, ok
}
