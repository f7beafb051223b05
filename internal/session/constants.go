// Package session manages browser sessions for the CRM front-end.
//
// A session binds a browser cookie to the authenticated user and the bearer
// token issued by the backend API. Cookies carry a random token whose SHA-256
// hash keys the persisted record, so a stolen copy of the store is useless
// on its own.
package session

const (
	// CookieName is the name of the cookie that stores the session token.
	CookieName = "crm_session"

	// CookiePath ensures the cookie is sent with all requests.
	CookiePath = "/"

	// CookieMaxAge sets the cookie expiration (7 days = 604800 seconds).
	// This should match the default SESSION_TTL.
	CookieMaxAge = 7 * 24 * 60 * 60

	// TokenBytes is the number of random bytes for session tokens.
	// The token is then hex-encoded to 64 characters for transmission.
	TokenBytes = 32
)
