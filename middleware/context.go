package middleware

import (
	"context"

	"github.com/finsolve/knowledge-gateway/claims"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// IdentityKey is the context key for the validated caller identity
	IdentityKey contextKey = "identity"
)

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetIdentityFromContext retrieves the validated identity from context
func GetIdentityFromContext(ctx context.Context) *claims.Identity {
	if val := ctx.Value(IdentityKey); val != nil {
		if identity, ok := val.(*claims.Identity); ok {
			return identity
		}
	}
	return nil
}

// WithIdentity adds a validated identity to the context
func WithIdentity(ctx context.Context, identity *claims.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}
