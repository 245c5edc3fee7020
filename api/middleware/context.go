package middleware

import (
	"context"

	"github.com/angelmondragon/stayregistry-backend/pkg/types"
)

type contextKey string

const ctxCaller contextKey = "caller"

// CallerFromContext returns the authenticated caller identity, or NoIdentity
// for anonymous requests.
func CallerFromContext(ctx context.Context) types.Identity {
	if ctx == nil {
		return types.NoIdentity
	}
	if v, ok := ctx.Value(ctxCaller).(types.Identity); ok {
		return v
	}
	return types.NoIdentity
}

// WithCaller injects the caller identity into the context.
func WithCaller(ctx context.Context, caller types.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCaller, caller)
}
