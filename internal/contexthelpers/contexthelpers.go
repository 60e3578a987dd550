package contexthelpers

import (
	"context"
)

type contextKey string

const AuthenticatedUserIDContextKey = contextKey("authenticatedUserID")

// WithAuthenticatedUserID returns a context carrying the user the wizard selections and plans belong to.
func WithAuthenticatedUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, AuthenticatedUserIDContextKey, userID)
}

func AuthenticatedUserID(ctx context.Context) int {
	userID, ok := ctx.Value(AuthenticatedUserIDContextKey).(int)
	if !ok {
		return 0
	}

	return userID
}
