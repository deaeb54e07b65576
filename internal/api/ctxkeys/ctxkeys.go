// Package ctxkeys holds the typed context keys shared by the api layer and the
// domain services. It is a leaf package so both sides can import it.
package ctxkeys

import "context"

// Key is the type of every context key set by the api layer.
type Key string

const (
	// UserID of the authenticated caller. Set by AuthMiddleware.
	UserID Key = "user_id"
	// Username of the authenticated caller. Set by AuthMiddleware.
	Username Key = "username"
	// Role of the authenticated caller ("basic" or "admin"). Set by AuthMiddleware.
	Role Key = "role"
)

// WithValue adds a string value under key.
func WithValue(ctx context.Context, key Key, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

// String returns the value under key, or "" when absent.
func String(ctx context.Context, key Key) string {
	v, _ := ctx.Value(key).(string)
	return v
}
