package http

import (
	"context"
	"net/http"
)

type ctxKey int

const userIDKey ctxKey = iota

// DefaultUser is assumed when no X-User-Id header is present. Real
// authentication is out of scope; the service trusts the header.
const DefaultUser = "demo-user"

func WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-Id")
		if userID == "" {
			userID = DefaultUser
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserID(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return DefaultUser
}
