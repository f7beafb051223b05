// Package handler contains HTTP handlers for the CRM front-end.
//
// This file implements the authentication handlers for login, logout
// and registration.
package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crmweb/internal/auth"
	"crmweb/internal/crm"
	"crmweb/internal/csrf"
	"crmweb/internal/domain"
	"crmweb/internal/metrics"
	"crmweb/internal/middleware"
	"crmweb/internal/session"
)

// TemplateRenderer is the interface for rendering HTML templates.
// This interface allows for mocking in tests.
type TemplateRenderer interface {
	RenderHTTP(w http.ResponseWriter, name string, data interface{})
}

// Flash represents a flash message to display to the user.
//
// The Type field determines styling in templates:
// - "success" -> green background
// - "error"   -> red background
// - "info"    -> blue background
type Flash struct {
	Type    string
	Message string
}

// AuthPageData contains common data for authentication pages.
// This struct is passed to login.html and register.html templates.
type AuthPageData struct {
	CurrentPath string            // Current URL path for navigation highlighting
	CSRFToken   string            // CSRF token for form protection
	Form        map[string]string // Form field values for re-populating on error
	Errors      map[string]string // Field-level validation errors
	Flash       *Flash            // Flash message to display
	ReturnTo    string            // URL to redirect to after successful login
}

// AuthHandler handles authentication-related HTTP requests.
//
// Routes handled:
// - GET  /register -> ShowRegister
// - POST /register -> Register
// - GET  /login    -> ShowLogin
// - POST /login    -> Login
// - POST /logout   -> Logout
type AuthHandler struct {
	authService crm.AuthService
	store       session.Store
	renderer    TemplateRenderer
	logger      *slog.Logger
	limiter     *middleware.AuthRateLimiter // optional, nil disables failure tracking
	sessionTTL  time.Duration
	isSecure    bool
}

// NewAuthHandler creates a new AuthHandler with the required dependencies.
// limiter may be nil when login rate limiting is not wanted.
func NewAuthHandler(
	authService crm.AuthService,
	store session.Store,
	renderer TemplateRenderer,
	logger *slog.Logger,
	limiter *middleware.AuthRateLimiter,
	sessionTTL time.Duration,
	isSecure bool,
) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		store:       store,
		renderer:    renderer,
		logger:      logger,
		limiter:     limiter,
		sessionTTL:  sessionTTL,
		isSecure:    isSecure,
	}
}

// =============================================================================
// GET /login
// =============================================================================

// ShowLogin renders the login form.
//
// Query Parameters:
// - return_to (optional): URL to redirect to after successful login
// - registered (optional): If "1", show success message for new registration
// - logout (optional): If "1", show signed-out message
//
// Already authenticated users are sent straight to the dashboard.
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	if auth.GetSession(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	var flash *Flash
	if r.URL.Query().Get("registered") == "1" {
		flash = &Flash{Type: "success", Message: "Account created successfully! Please sign in."}
	} else if r.URL.Query().Get("logout") == "1" {
		flash = &Flash{Type: "success", Message: "You have been signed out."}
	}

	data := AuthPageData{
		CurrentPath: r.URL.Path,
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
		Form:        make(map[string]string),
		Errors:      make(map[string]string),
		Flash:       flash,
		ReturnTo:    r.URL.Query().Get("return_to"),
	}

	h.renderer.RenderHTTP(w, "auth/login", data)
}

// =============================================================================
// POST /login
// =============================================================================

// Login processes the login form submission.
//
// Form Fields:
// - username (required)
// - password (required)
// - return_to (optional): URL to redirect to after successful login
//
// On success the backend's bearer token and user record are persisted as a
// server-side session and the browser gets the session cookie. Logging in
// while already authenticated replaces the existing session.
//
// Bad credentials always produce the same generic message so usernames
// cannot be enumerated.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse form", "error", err)
		h.renderLoginError(w, r, nil, nil, &Flash{
			Type:    "error",
			Message: "Invalid form submission. Please try again.",
		})
		return
	}

	if !csrf.ValidateRequest(r) {
		h.renderLoginError(w, r, nil, nil, &Flash{
			Type:    "error",
			Message: "Invalid security token. Please try again.",
		})
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	returnTo := r.FormValue("return_to")

	// Form values for re-rendering (never the password)
	formValues := map[string]string{
		"Username": username,
	}

	errors := make(map[string]string)
	if username == "" {
		errors["username"] = "Username is required"
	}
	if password == "" {
		errors["password"] = "Password is required"
	}
	if len(errors) > 0 {
		h.renderLoginError(w, r, formValues, errors, nil)
		return
	}

	result, err := h.authService.Login(r.Context(), domain.Credentials{
		Username: username,
		Password: password,
	})
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.EUNAUTHORIZED:
			if h.limiter != nil {
				h.limiter.RecordFailedLogin(middleware.ClientIP(r))
			}
			h.renderLoginError(w, r, formValues, nil, &Flash{
				Type:    "error",
				Message: "Invalid username or password",
			})
		case domain.EUNAVAILABLE:
			h.renderLoginError(w, r, formValues, nil, &Flash{
				Type:    "error",
				Message: "The CRM service is currently unavailable. Please try again later.",
			})
		default:
			h.logger.Error("login failed", "error", err, "username", username)
			h.renderLoginError(w, r, formValues, nil, &Flash{
				Type:    "error",
				Message: "Login failed. Please try again later.",
			})
		}
		return
	}

	if !h.createSession(w, r, result) {
		return
	}

	if h.limiter != nil {
		h.limiter.ResetLogin(middleware.ClientIP(r))
	}

	redirectURL := "/dashboard"
	if returnTo != "" && isSafeRedirectURL(returnTo) {
		redirectURL = returnTo
	}
	http.Redirect(w, r, redirectURL, http.StatusSeeOther)
}

// createSession persists a new session for the login result and sets the
// cookie. Any previous session bound to the browser is discarded first.
// Returns false if the session could not be persisted; the error response
// has already been written in that case.
func (h *AuthHandler) createSession(w http.ResponseWriter, r *http.Request, result *domain.LoginResult) bool {
	if cookie, err := r.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		if err := h.store.Delete(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("failed to delete previous session", "error", err)
		}
	}

	sess := &domain.Session{
		User:      result.User,
		APIToken:  result.Token,
		ExpiresAt: session.ExpiryFromToken(result.Token, h.sessionTTL),
	}

	token, err := h.store.Create(r.Context(), sess)
	if err != nil {
		h.logger.Error("failed to persist session", "error", err, "user_id", result.User.ID)
		ErrorResponse(w, r, h.logger, err)
		return false
	}

	middleware.SetSessionCookie(w, token, h.isSecure)
	csrf.RefreshToken(w, h.isSecure)
	metrics.SessionsActive.Inc()
	return true
}

// renderLoginError re-renders the login form with errors.
func (h *AuthHandler) renderLoginError(
	w http.ResponseWriter,
	r *http.Request,
	formValues map[string]string,
	errors map[string]string,
	flash *Flash,
) {
	if formValues == nil {
		formValues = make(map[string]string)
	}
	if errors == nil {
		errors = make(map[string]string)
	}

	data := AuthPageData{
		CurrentPath: "/login",
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
		Form:        formValues,
		Errors:      errors,
		Flash:       flash,
		ReturnTo:    r.FormValue("return_to"),
	}

	h.renderer.RenderHTTP(w, "auth/login", data)
}

// =============================================================================
// GET /register
// =============================================================================

// ShowRegister renders the registration form.
func (h *AuthHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	if auth.GetSession(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	data := AuthPageData{
		CurrentPath: r.URL.Path,
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
		Form:        make(map[string]string),
		Errors:      make(map[string]string),
		ReturnTo:    r.URL.Query().Get("return_to"),
	}

	h.renderer.RenderHTTP(w, "auth/register", data)
}

// =============================================================================
// POST /register
// =============================================================================

// Register processes the registration form submission.
//
// Form Fields:
// - username, password, password_confirmation (required)
// - first_name, last_name (optional)
//
// On success the new account is logged in immediately. If the backend
// created the account but issued no token, the user is sent to the login
// page instead.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse form", "error", err)
		h.renderRegisterError(w, r, nil, nil, &Flash{
			Type:    "error",
			Message: "Invalid form submission. Please try again.",
		})
		return
	}

	if !csrf.ValidateRequest(r) {
		h.renderRegisterError(w, r, nil, nil, &Flash{
			Type:    "error",
			Message: "Invalid security token. Please try again.",
		})
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	passwordConfirmation := r.FormValue("password_confirmation")
	firstName := strings.TrimSpace(r.FormValue("first_name"))
	lastName := strings.TrimSpace(r.FormValue("last_name"))

	formValues := map[string]string{
		"Username":  username,
		"FirstName": firstName,
		"LastName":  lastName,
	}

	errors := make(map[string]string)
	if username == "" {
		errors["username"] = "Username is required"
	}
	if password == "" {
		errors["password"] = "Password is required"
	} else if len(password) < 8 {
		errors["password"] = "Password must be at least 8 characters"
	}
	if passwordConfirmation == "" {
		errors["password_confirmation"] = "Please confirm your password"
	} else if password != passwordConfirmation {
		errors["password_confirmation"] = "Passwords do not match"
	}
	if len(errors) > 0 {
		h.renderRegisterError(w, r, formValues, errors, nil)
		return
	}

	result, err := h.authService.Register(r.Context(), domain.RegisterParams{
		Username:  username,
		Password:  password,
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.ECONFLICT, domain.EINVALID:
			h.renderRegisterError(w, r, formValues, nil, &Flash{
				Type:    "error",
				Message: domain.ErrorMessage(err),
			})
		case domain.EUNAVAILABLE:
			h.renderRegisterError(w, r, formValues, nil, &Flash{
				Type:    "error",
				Message: "The CRM service is currently unavailable. Please try again later.",
			})
		default:
			h.logger.Error("registration failed", "error", err, "username", username)
			h.renderRegisterError(w, r, formValues, nil, &Flash{
				Type:    "error",
				Message: "Registration failed. Please try again later.",
			})
		}
		return
	}

	if result.Token == "" {
		// Account exists but no token issued; let the user sign in manually
		http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
		return
	}

	if !h.createSession(w, r, result) {
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// renderRegisterError re-renders the registration form with errors.
func (h *AuthHandler) renderRegisterError(
	w http.ResponseWriter,
	r *http.Request,
	formValues map[string]string,
	errors map[string]string,
	flash *Flash,
) {
	if formValues == nil {
		formValues = make(map[string]string)
	}
	if errors == nil {
		errors = make(map[string]string)
	}

	data := AuthPageData{
		CurrentPath: "/register",
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
		Form:        formValues,
		Errors:      errors,
		Flash:       flash,
		ReturnTo:    r.FormValue("return_to"),
	}

	h.renderer.RenderHTTP(w, "auth/register", data)
}

// =============================================================================
// POST /logout
// =============================================================================

// Logout removes the persisted session and clears the session cookie.
//
// This operation is idempotent; calling without a session is fine. The
// cookie is cleared even when the store delete fails.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		if err := h.store.Delete(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("failed to delete session", "error", err)
		} else {
			metrics.SessionsActive.Dec()
		}
	}

	middleware.ClearSessionCookie(w, h.isSecure)

	h.logger.Debug("user logged out")
	http.Redirect(w, r, "/login?logout=1", http.StatusSeeOther)
}

// isSafeRedirectURL checks if a URL is safe to redirect to.
//
// This prevents open redirects by requiring a relative URL with no scheme
// or host.
func isSafeRedirectURL(rawURL string) bool {
	if !strings.HasPrefix(rawURL, "/") {
		return false
	}
	if strings.HasPrefix(rawURL, "//") {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return parsed.Scheme == "" && parsed.Host == ""
}
