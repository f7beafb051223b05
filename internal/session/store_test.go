package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmweb/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testSession(ttl time.Duration) *domain.Session {
	return &domain.Session{
		User:      domain.User{ID: 1, Username: "jane", FirstName: "Jane", LastName: "Doe"},
		APIToken:  "backend-token",
		ExpiresAt: time.Now().Add(ttl),
	}
}

func TestSQLiteStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, testSession(time.Hour))
	require.NoError(t, err)
	assert.Len(t, token, 64)

	got, err := store.Get(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "jane", got.User.Username)
	assert.Equal(t, "backend-token", got.APIToken)
}

func TestSQLiteStore_Get_UnknownToken(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "0000000000000000000000000000000000000000000000000000000000000000")
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
}

func TestSQLiteStore_Get_MalformedToken(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "short")
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
}

func TestSQLiteStore_Get_ExpiredSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, testSession(-time.Minute))
	require.NoError(t, err)

	_, err = store.Get(ctx, token)
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, testSession(time.Hour))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, token))

	_, err = store.Get(ctx, token)
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))

	// Idempotent
	assert.NoError(t, store.Delete(ctx, token))
	assert.NoError(t, store.Delete(ctx, ""))
}

func TestSQLiteStore_DeleteExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, testSession(-time.Minute))
	require.NoError(t, err)
	live, err := store.Create(ctx, testSession(time.Hour))
	require.NoError(t, err)

	n, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Get(ctx, live)
	assert.NoError(t, err)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	token, err := store.Create(ctx, testSession(time.Hour))
	require.NoError(t, err)

	got, err := store.Get(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.User.ID)

	require.NoError(t, store.Delete(ctx, token))
	_, err = store.Get(ctx, token)
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
}

func TestExpiryFromToken(t *testing.T) {
	fallbackTTL := time.Hour

	t.Run("jwt with exp claim", func(t *testing.T) {
		exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		})
		signed, err := token.SignedString([]byte("secret"))
		require.NoError(t, err)

		got := ExpiryFromToken(signed, fallbackTTL)
		assert.WithinDuration(t, exp, got, time.Second)
	})

	t.Run("expired exp claim is kept", func(t *testing.T) {
		exp := time.Now().Add(-30 * time.Minute).Truncate(time.Second)
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		})
		signed, err := token.SignedString([]byte("secret"))
		require.NoError(t, err)

		got := ExpiryFromToken(signed, fallbackTTL)
		assert.WithinDuration(t, exp, got, time.Second)
		assert.True(t, got.Before(time.Now()))
	})

	t.Run("opaque token uses fallback", func(t *testing.T) {
		got := ExpiryFromToken("not-a-jwt", fallbackTTL)
		assert.WithinDuration(t, time.Now().Add(fallbackTTL), got, 5*time.Second)
	})

	t.Run("jwt without exp uses fallback", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "jane"})
		signed, err := token.SignedString([]byte("secret"))
		require.NoError(t, err)

		got := ExpiryFromToken(signed, fallbackTTL)
		assert.WithinDuration(t, time.Now().Add(fallbackTTL), got, 5*time.Second)
	})
}
