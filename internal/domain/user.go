// Package domain contains core business types shared across the application.
//
// This file defines the User and Session types for authentication. The user
// and its API token are issued by the CRM backend at login; this application
// never stores credentials or verifies passwords itself.
package domain

import "time"

// User represents the authenticated CRM user as returned by the backend.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// DisplayName returns the user's full name, falling back to the username.
func (u *User) DisplayName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Username
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Session is the authenticated-user context held by this application on
// behalf of one browser: the backend user plus the API token attached to
// every CRM request made for that browser.
//
// Sessions are created at login, persisted by the session store so they
// survive restarts, and destroyed at logout or expiry. Only the session
// store writes them; everything else reads.
type Session struct {
	User      User
	APIToken  string // Bearer token for the CRM backend; never rendered
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Credentials are the login form fields sent to the backend.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterParams contains the fields for creating a new backend account.
type RegisterParams struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// LoginResult is the backend's response to a successful login or
// registration: the authenticated user plus a bearer token for
// subsequent API calls.
type LoginResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
