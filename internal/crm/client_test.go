package crm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmweb/internal/auth"
	"crmweb/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, testLogger())
}

func authedContext() context.Context {
	return auth.SetSession(context.Background(), &domain.Session{
		User:     domain.User{ID: 1, Username: "jane"},
		APIToken: "backend-token",
	})
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	})

	svc := NewContactService(client, testLogger())
	_, err := svc.List(authedContext())
	require.NoError(t, err)
	assert.Equal(t, "Bearer backend-token", gotAuth)
}

func TestClient_NoSessionNoAuthHeader(t *testing.T) {
	var gotAuth string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("[]"))
	})

	svc := NewContactService(client, testLogger())
	_, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantCode   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, domain.EUNAUTHORIZED},
		{"forbidden", http.StatusForbidden, `{}`, domain.EUNAUTHORIZED},
		{"not found", http.StatusNotFound, `{}`, domain.ENOTFOUND},
		{"bad request", http.StatusBadRequest, `{"message":"email is taken"}`, domain.EINVALID},
		{"server error", http.StatusInternalServerError, `{}`, domain.EUNAVAILABLE},
		{"bad gateway", http.StatusBadGateway, ``, domain.EUNAVAILABLE},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			})

			svc := NewContactService(client, testLogger())
			_, err := svc.Get(authedContext(), 1)
			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
		})
	}
}

func TestClient_BadRequestKeepsBackendMessage(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"email is taken"}`))
	})

	svc := NewContactService(client, testLogger())
	_, err := svc.Create(authedContext(), domain.ContactPayload{FirstName: "Jane"})
	assert.Equal(t, "email is taken", domain.ErrorMessage(err))
}

func TestClient_NetworkErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // Connections now refused

	client := NewClient(srv.URL, time.Second, testLogger())
	svc := NewContactService(client, testLogger())
	_, err := svc.List(authedContext())
	assert.Equal(t, domain.EUNAVAILABLE, domain.ErrorCode(err))
}

func TestContactService_CreateBody(t *testing.T) {
	var gotBody map[string]any
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/contacts", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"id":9,"firstName":"Jane","lastName":"Doe"}`))
	})

	payload, err := domain.ContactDraft{
		FirstName: "Jane",
		LastName:  "Doe",
		Status:    "Active",
		CompanyID: "3",
	}.Payload()
	require.NoError(t, err)

	svc := NewContactService(client, testLogger())
	created, err := svc.Create(authedContext(), payload)
	require.NoError(t, err)
	assert.Equal(t, int64(9), created.ID)

	company, ok := gotBody["company"].(map[string]any)
	require.True(t, ok, "company must be an object, got %T", gotBody["company"])
	assert.Equal(t, float64(3), company["id"])
}

func TestContactService_CreateBody_NoCompanyIsNull(t *testing.T) {
	var gotBody map[string]any
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"id":9}`))
	})

	payload, err := domain.ContactDraft{FirstName: "Jane", LastName: "Doe"}.Payload()
	require.NoError(t, err)

	svc := NewContactService(client, testLogger())
	_, err = svc.Create(authedContext(), payload)
	require.NoError(t, err)

	val, present := gotBody["company"]
	assert.True(t, present)
	assert.Nil(t, val)
}

func TestContactService_FilterPaths(t *testing.T) {
	var gotPath string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("[]"))
	})
	svc := NewContactService(client, testLogger())

	_, err := svc.ListByCompany(authedContext(), 12)
	require.NoError(t, err)
	assert.Equal(t, "/contacts/company/12", gotPath)

	_, err = svc.ListByStatus(authedContext(), domain.StatusProspect)
	require.NoError(t, err)
	assert.Equal(t, "/contacts/status/Prospect", gotPath)

	_, err = svc.ListByStatus(authedContext(), domain.Status("bogus"))
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestContactService_Delete(t *testing.T) {
	var gotMethod, gotPath string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	svc := NewContactService(client, testLogger())
	require.NoError(t, svc.Delete(authedContext(), 4))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/contacts/4", gotPath)
}

func TestCompanyService_CreateBody_RevenueIsNumeric(t *testing.T) {
	var raw []byte
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var err error
		raw, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		w.Write([]byte(`{"id":2,"name":"Acme"}`))
	})

	payload, err := domain.CompanyDraft{Name: "Acme", Status: "Active", Revenue: "125000.5"}.Payload()
	require.NoError(t, err)

	svc := NewCompanyService(client, testLogger())
	_, err = svc.Create(authedContext(), payload)
	require.NoError(t, err)

	assert.Contains(t, string(raw), `"revenue":125000.5`)
	assert.NotContains(t, string(raw), `"revenue":"125000.5"`)
}

func TestCompanyService_CreateBody_EmptyRevenueIsNull(t *testing.T) {
	var raw []byte
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var err error
		raw, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		w.Write([]byte(`{"id":2}`))
	})

	payload, err := domain.CompanyDraft{Name: "Acme", Status: "Active"}.Payload()
	require.NoError(t, err)

	svc := NewCompanyService(client, testLogger())
	_, err = svc.Create(authedContext(), payload)
	require.NoError(t, err)

	assert.Contains(t, string(raw), `"revenue":null`)
}

func TestCompanyService_FilterPaths(t *testing.T) {
	var gotPath string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("[]"))
	})
	svc := NewCompanyService(client, testLogger())

	_, err := svc.ListByIndustry(authedContext(), "Software")
	require.NoError(t, err)
	assert.Equal(t, "/companies/industry/Software", gotPath)

	_, err = svc.ListByStatus(authedContext(), domain.StatusInactive)
	require.NoError(t, err)
	assert.Equal(t, "/companies/status/Inactive", gotPath)

	_, err = svc.ListByIndustry(authedContext(), "  ")
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestAuthService_Login(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)

		var creds domain.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Username == "jane" && creds.Password == "secret" {
			w.Write([]byte(`{"user":{"id":1,"username":"jane","firstName":"Jane","lastName":"Doe"},"token":"issued-token"}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	svc := NewAuthService(client, testLogger())

	t.Run("success", func(t *testing.T) {
		result, err := svc.Login(context.Background(), domain.Credentials{Username: "jane", Password: "secret"})
		require.NoError(t, err)
		assert.Equal(t, "issued-token", result.Token)
		assert.Equal(t, "Jane", result.User.FirstName)
	})

	t.Run("bad credentials get a generic message", func(t *testing.T) {
		_, err := svc.Login(context.Background(), domain.Credentials{Username: "jane", Password: "wrong"})
		assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
		assert.Equal(t, "Invalid username or password", domain.ErrorMessage(err))
	})
}

func TestAuthService_LoginWithoutToken(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user":{"id":1,"username":"jane"}}`))
	})

	svc := NewAuthService(client, testLogger())
	_, err := svc.Login(context.Background(), domain.Credentials{Username: "jane", Password: "secret"})
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
}
