// Package csrf provides CSRF protection using the double-submit cookie pattern.
//
// The double-submit cookie pattern works by:
// 1. Setting a random token in a cookie
// 2. Including the same token in forms as a hidden field
// 3. On POST, comparing the cookie value with the form value
//
// Attackers can make the browser send cookies with cross-origin requests,
// but they cannot read or set cookies for our domain, so they cannot put
// the correct token in the form body.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
)

const (
	// CookieName is the name of the CSRF token cookie.
	CookieName = "csrf_token"

	// FormFieldName is the name of the CSRF token form field.
	FormFieldName = "csrf_token"

	// TokenLength is the number of random bytes for the token.
	TokenLength = 32

	// CookieMaxAge is the lifetime of the CSRF cookie (1 hour).
	// Shorter than session cookies since CSRF tokens should be refreshed.
	CookieMaxAge = 3600
)

// GenerateToken generates a cryptographically secure random token,
// base64 URL-encoded to a 43-character string.
func GenerateToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// MustGenerateToken generates a token or panics. crypto/rand failure is
// unrecoverable anyway.
func MustGenerateToken() string {
	token, err := GenerateToken()
	if err != nil {
		panic("csrf: failed to generate token: " + err.Error())
	}
	return token
}

// ValidateToken compares the cookie token with the form token using
// constant-time comparison.
func ValidateToken(cookieToken, formToken string) bool {
	if cookieToken == "" || formToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieToken), []byte(formToken)) == 1
}

// ValidateRequest validates the CSRF token from a request by comparing the
// csrf_token cookie against the csrf_token form field.
func ValidateRequest(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	return ValidateToken(cookie.Value, r.FormValue(FormFieldName))
}

// SetCookie sets the CSRF token cookie on the response.
//
// HttpOnly is false because the template layer reads the token back into
// form fields; SameSite=Strict gives maximum CSRF protection.
func SetCookie(w http.ResponseWriter, token string, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		HttpOnly: false,
		Secure:   isSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// GetTokenFromRequest retrieves the CSRF token from the request cookie.
// Returns empty string if the cookie doesn't exist.
func GetTokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// EnsureToken ensures a CSRF token exists for the request.
// If a valid token cookie exists, it returns that token. Otherwise it
// generates a new token, sets the cookie, and returns it.
//
// This is the main function handlers should use on GET requests.
func EnsureToken(w http.ResponseWriter, r *http.Request, isSecure bool) string {
	if existing := GetTokenFromRequest(r); existing != "" {
		return existing
	}

	token := MustGenerateToken()
	SetCookie(w, token, isSecure)
	return token
}

// RefreshToken generates a new CSRF token and sets it in the response cookie.
// Use this after successful form submissions to prevent token reuse.
func RefreshToken(w http.ResponseWriter, isSecure bool) string {
	token := MustGenerateToken()
	SetCookie(w, token, isSecure)
	return token
}
