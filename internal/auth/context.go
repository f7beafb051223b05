// Package auth provides authentication context helpers.
//
// This package is designed to be imported by the middleware, handler and
// crm packages without causing import cycles.
package auth

import (
	"context"
	"net/http"

	"crmweb/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// sessionContextKey is the key used to store the active session in context.
	sessionContextKey contextKey = "session"
)

// GetSession retrieves the active session from the context.
//
// Returns nil if the request is unauthenticated.
//
// Usage:
//
//	sess := auth.GetSession(r.Context())
//	if sess == nil {
//	    // Handle unauthenticated request
//	}
func GetSession(ctx context.Context) *domain.Session {
	sess, ok := ctx.Value(sessionContextKey).(*domain.Session)
	if !ok {
		return nil
	}
	return sess
}

// GetSessionFromRequest retrieves the active session from the request context.
//
// This is a convenience wrapper around GetSession that takes the request directly.
func GetSessionFromRequest(r *http.Request) *domain.Session {
	return GetSession(r.Context())
}

// SetSession stores a session in the context.
//
// This is typically called by authentication middleware after validating
// a session cookie.
func SetSession(ctx context.Context, sess *domain.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// Token returns the backend API token for the current session, or an
// empty string when the request is unauthenticated.
func Token(ctx context.Context) string {
	sess := GetSession(ctx)
	if sess == nil {
		return ""
	}
	return sess.APIToken
}
