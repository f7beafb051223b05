package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"crmweb/internal/domain"
)

// Store persists browser sessions keyed by the SHA-256 hash of the raw
// cookie token. The raw token never touches the store.
type Store interface {
	// Create persists a session and returns the raw cookie token.
	Create(ctx context.Context, sess *domain.Session) (string, error)

	// Get retrieves the session for a raw cookie token.
	// Returns domain.EUNAUTHORIZED if the token is unknown or expired.
	Get(ctx context.Context, token string) (*domain.Session, error)

	// Delete removes the session for a raw cookie token.
	// Deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteExpired removes all sessions past their expiry.
	DeleteExpired(ctx context.Context) (int64, error)

	// Close releases the underlying storage.
	Close() error
}

// generateToken returns a cryptographically secure random token,
// hex-encoded to 64 characters.
func generateToken() (string, error) {
	bytes := make([]byte, TokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// hashToken creates the SHA-256 hash of a raw session token.
// Tokens are high-entropy random values, so SHA-256 is sufficient.
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ExpiryFromToken derives the session expiry from the backend JWT's exp
// claim without verifying the signature. The backend already verified the
// token on login; here it only bounds how long we keep the session. The
// claim is authoritative even when it lies in the past, so a session never
// outlives a token the backend will reject. When the token is not a JWT or
// carries no expiry, the fallback TTL applies.
func ExpiryFromToken(apiToken string, fallbackTTL time.Duration) time.Time {
	fallback := time.Now().Add(fallbackTTL)

	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(apiToken, jwt.MapClaims{})
	if err != nil {
		return fallback
	}

	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fallback
	}
	return exp.Time
}
