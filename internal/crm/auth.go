package crm

import (
	"context"
	"log/slog"
	"net/http"

	"crmweb/internal/domain"
	"crmweb/internal/metrics"
)

// AuthService defines the authentication operations against the backend.
type AuthService interface {
	// Login exchanges credentials for a user record and a bearer token.
	// Returns domain.EUNAUTHORIZED when credentials are rejected.
	Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error)

	// Register creates a new backend account and logs it in.
	// Returns domain.EINVALID when the backend rejects the registration.
	Register(ctx context.Context, params domain.RegisterParams) (*domain.LoginResult, error)
}

// authService implements AuthService over the backend API.
type authService struct {
	client *Client
	logger *slog.Logger
}

func NewAuthService(client *Client, logger *slog.Logger) AuthService {
	return &authService{client: client, logger: logger}
}

func (s *authService) Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error) {
	const op = "auth.login"

	var result domain.LoginResult
	if err := s.client.do(ctx, op, http.MethodPost, "/auth/login", creds, &result); err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		// The backend answers 401 or 403 for bad credentials. Keep the
		// message generic either way to avoid username enumeration.
		if domain.ErrorCode(err) == domain.EUNAUTHORIZED || domain.ErrorCode(err) == domain.EINVALID {
			return nil, domain.Unauthorized(op, "Invalid username or password")
		}
		return nil, err
	}

	if result.Token == "" {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, domain.Internal(nil, op, "Backend returned no token")
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.logger.Info("user logged in", "user_id", result.User.ID, "username", result.User.Username)
	return &result, nil
}

func (s *authService) Register(ctx context.Context, params domain.RegisterParams) (*domain.LoginResult, error) {
	const op = "auth.register"

	var result domain.LoginResult
	if err := s.client.do(ctx, op, http.MethodPost, "/auth/register", params, &result); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", result.User.ID, "username", result.User.Username)
	return &result, nil
}
