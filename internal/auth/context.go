package auth

import (
	"context"
	"net/http"

	"docbay/internal/document"
)

// contextKey is an unexported type for context keys in this package.
type contextKey int

const (
	principalContextKey contextKey = iota
	adminContextKey
)

// WithPrincipal attaches the authenticated user record to the context.
func WithPrincipal(ctx context.Context, user document.Doc) context.Context {
	return context.WithValue(ctx, principalContextKey, user)
}

// GetPrincipal retrieves the authenticated principal from the request
// context. Returns nil for anonymous requests.
func GetPrincipal(r *http.Request) document.Doc {
	principal, _ := r.Context().Value(principalContextKey).(document.Doc)
	return principal
}

// WithAdmin marks the context as carrying the administrative override.
func WithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, adminContextKey, true)
}

// IsAdmin reports whether the administrative override header was present.
// The override bypasses a failed top-level rule but never field rules.
func IsAdmin(r *http.Request) bool {
	admin, _ := r.Context().Value(adminContextKey).(bool)
	return admin
}
