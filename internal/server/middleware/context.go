package middleware

import "context"

type contextKey string

const userIDKey contextKey = "auth.userID"

// WithUserID returns a context carrying the authenticated identity id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the authenticated identity id stored by the auth gate,
// or "" when the request never passed the gate.
func UserID(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}
