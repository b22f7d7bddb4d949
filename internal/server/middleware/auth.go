// Package middleware provides HTTP middleware for bearer token
// authentication.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// profileIDKey is the context key for the authenticated profile id.
const profileIDKey ContextKey = "profileID"

// ErrNoProfile is returned by GetProfileID outside an authenticated
// request.
var ErrNoProfile = errors.New("profile ID not found in request context")

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (ProfileIDGetter, error)
}

// ProfileIDGetter extracts the profile id from token claims.
type ProfileIDGetter interface {
	GetProfileID() string
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the token's profile id in the request context.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				unauthorized(w)
				return
			}
			profileID := claims.GetProfileID()
			if profileID == "" {
				unauthorized(w)
				return
			}

			ctx := WithProfileID(r.Context(), profileID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken parses "Bearer <token>", case-insensitive on the scheme.
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="job-ingest"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
}

// WithProfileID returns a context carrying profileID.
func WithProfileID(ctx context.Context, profileID string) context.Context {
	return context.WithValue(ctx, profileIDKey, profileID)
}

// GetProfileID returns the authenticated profile id of the request.
func GetProfileID(r *http.Request) (string, error) {
	id, ok := r.Context().Value(profileIDKey).(string)
	if !ok || id == "" {
		return "", ErrNoProfile
	}
	return id, nil
}
