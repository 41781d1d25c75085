// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"net/http"
	"strings"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// UserIDKey is the context key for the reacting user's id.
	UserIDKey ContextKey = "user_id"

	// UserIDHeader names the caller on requests. It is an identity label
	// for reactions, not an authenticated principal.
	UserIDHeader = "X-User-ID"

	// DefaultUserID is used when the caller sends no identity.
	DefaultUserID = "user"

	maxUserIDLength = 64
)

// Identity stores the caller's user id in the request context.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" || len(userID) > maxUserIDLength {
			userID = DefaultUserID
		}
		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID gets the user id from context, or DefaultUserID.
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDKey).(string); ok && v != "" {
		return v
	}
	return DefaultUserID
}
