// Package middleware contains HTTP middleware for the CRM front-end.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler.
// They are designed to be composed using a middleware stack approach.
package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"crmweb/internal/auth"
	"crmweb/internal/session"
)

// =============================================================================
// Session Middleware
// =============================================================================

// SessionMiddleware loads and enforces browser sessions.
//
// Create one instance and use its methods as middleware.
type SessionMiddleware struct {
	store    session.Store
	logger   *slog.Logger
	isSecure bool // Whether to set Secure flag on cookies (true in production)
}

// NewSessionMiddleware creates a new SessionMiddleware instance.
//
// Parameters:
// - store: Session store for cookie validation
// - logger: Structured logger for auth events
// - isSecure: Set to true in production to enable Secure cookie flag
func NewSessionMiddleware(store session.Store, logger *slog.Logger, isSecure bool) *SessionMiddleware {
	return &SessionMiddleware{
		store:    store,
		logger:   logger,
		isSecure: isSecure,
	}
}

// WithSession is middleware that attempts to load the session from the cookie.
//
// This middleware:
// 1. Checks for a session cookie
// 2. If found, validates it against the store
// 3. Stores the session in the request context
// 4. Continues to the next handler regardless of authentication status
//
// Use this on routes that work both authenticated and unauthenticated.
// The session can be retrieved in handlers using auth.GetSession(r.Context()).
func (m *SessionMiddleware) WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(session.CookieName)
		if err != nil {
			// No cookie found, continue without session
			next.ServeHTTP(w, r)
			return
		}

		sess, err := m.store.Get(r.Context(), cookie.Value)
		if err != nil {
			// Invalid or expired session, clear the cookie and continue
			clearSessionCookie(w, m.isSecure)
			next.ServeHTTP(w, r)
			return
		}

		r = r.WithContext(auth.SetSession(r.Context(), sess))
		next.ServeHTTP(w, r)
	})
}

// RequireSession is middleware that requires an authenticated session.
//
// Unauthenticated HTML requests are redirected to /login with a return_to
// parameter; requests that expect JSON get a 401 instead. The check runs on
// every request, so a session invalidated mid-browse takes effect on the
// next navigation.
//
// IMPORTANT: This middleware must be used AFTER WithSession in the chain.
func (m *SessionMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := auth.GetSession(r.Context())
		if sess == nil {
			if isAPIRequest(r) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"Authentication required"}`))
				return
			}

			// Include return_to so login can send the user back
			returnTo := r.URL.Path
			if r.URL.RawQuery != "" {
				returnTo += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, "/login?return_to="+url.QueryEscape(returnTo), http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Cookie Helpers
// =============================================================================

// SetSessionCookie sets the session cookie on the response.
//
// Cookie Settings:
// - HttpOnly: true - Prevents JavaScript access
// - Secure: configurable - Set true in production (HTTPS only)
// - SameSite: Lax - Prevents CSRF while allowing normal navigation
func SetSessionCookie(w http.ResponseWriter, token string, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     session.CookiePath,
		MaxAge:   session.CookieMaxAge,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie removes the session cookie from the client by setting
// MaxAge to -1.
func clearSessionCookie(w http.ResponseWriter, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     session.CookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie is the exported version for use in logout handlers.
func ClearSessionCookie(w http.ResponseWriter, isSecure bool) {
	clearSessionCookie(w, isSecure)
}

// =============================================================================
// Request Helpers
// =============================================================================

// isAPIRequest determines if the request expects a JSON response.
func isAPIRequest(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// =============================================================================
// Middleware Stack Helpers
// =============================================================================

// Stack composes multiple middleware functions into a single middleware.
//
// Middleware is applied in the order provided, meaning the first middleware
// in the slice is the outermost (runs first on request, last on response).
//
// Example:
//
//	stack := Stack(loggingMw, sessionMw.WithSession, sessionMw.RequireSession)
//	mux.Handle("GET /contacts", stack(contactHandler))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// Compile-time signature checks
var (
	_ func(http.Handler) http.Handler = (&SessionMiddleware{}).WithSession
	_ func(http.Handler) http.Handler = (&SessionMiddleware{}).RequireSession
)
