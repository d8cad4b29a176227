package auth

import "context"

type contextKey string

const grantKey contextKey = "impersonationGrant"

// WithGrant attaches an impersonation grant to the context.
func WithGrant(ctx context.Context, g *Grant) context.Context {
	return context.WithValue(ctx, grantKey, g)
}

// GrantFromContext returns the impersonation grant carried by the context,
// or nil when the session is not elevated.
func GrantFromContext(ctx context.Context) *Grant {
	if g, ok := ctx.Value(grantKey).(*Grant); ok {
		return g
	}
	return nil
}
