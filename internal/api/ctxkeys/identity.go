package ctxkeys

import (
	"context"
	"errors"
)

// ErrMissingIdentity is returned when no authenticated user is in the context.
var ErrMissingIdentity = errors.New("missing user identity in context")

// Identity is the authenticated caller as injected by AuthMiddleware.
type Identity struct {
	UserID   string
	Username string
	Role     string
}

// WithIdentity stores the caller in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = WithValue(ctx, UserID, id.UserID)
	ctx = WithValue(ctx, Username, id.Username)
	return WithValue(ctx, Role, id.Role)
}

// GetIdentity returns the caller stored by WithIdentity.
func GetIdentity(ctx context.Context) (Identity, error) {
	id := Identity{
		UserID:   String(ctx, UserID),
		Username: String(ctx, Username),
		Role:     String(ctx, Role),
	}
	if id.UserID == "" {
		return Identity{}, ErrMissingIdentity
	}
	return id, nil
}
