package idp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKeycloak is a minimal admin API stub covering the endpoints the client
// touches.
type fakeKeycloak struct {
	tokenRequests int32
	failAdmin     bool
}

func (f *fakeKeycloak) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/realms/platform/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenRequests, 1)
		_ = r.ParseForm()
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "admin-token",
			"expires_in":   300,
		})
	})

	mux.HandleFunc("/admin/realms/platform/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer admin-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.failAdmin {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		path := strings.TrimPrefix(r.URL.Path, "/admin/realms/platform")
		switch {
		case path == "/users" && r.Method == http.MethodPost:
			w.Header().Set("Location", "http://keycloak/admin/realms/platform/users/user-uuid-1")
			w.WriteHeader(http.StatusCreated)
		case strings.HasPrefix(path, "/users/") && r.Method == http.MethodPut:
			w.WriteHeader(http.StatusNoContent)
		case strings.HasPrefix(path, "/users/") && r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
		case path == "/clients" && r.Method == http.MethodGet:
			json.NewEncoder(w).Encode([]map[string]string{{"id": "client-uuid-1", "clientId": r.URL.Query().Get("clientId")}})
		case path == "/clients" && r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
		case path == "/clients/client-uuid-1/client-secret" && r.Method == http.MethodPost:
			json.NewEncoder(w).Encode(map[string]string{"value": "generated-secret"})
		case strings.HasPrefix(path, "/clients/") && r.Method == http.MethodPut:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	return mux
}

func newTestClient(t *testing.T, fk *fakeKeycloak) *KeycloakClient {
	t.Helper()
	server := httptest.NewServer(fk.handler())
	t.Cleanup(server.Close)

	client, err := NewKeycloakClient(&KeycloakConfig{
		BaseURL:      server.URL,
		Realm:        "platform",
		ClientID:     "principal-service",
		ClientSecret: "secret",
	})
	require.NoError(t, err)
	return client
}

func TestNewKeycloakClientValidation(t *testing.T) {
	_, err := NewKeycloakClient(&KeycloakConfig{Realm: "platform"})
	assert.Error(t, err)

	_, err = NewKeycloakClient(&KeycloakConfig{BaseURL: "http://keycloak"})
	assert.Error(t, err)
}

func TestCreateUserParsesLocation(t *testing.T) {
	client := newTestClient(t, &fakeKeycloak{})

	email := "ada@example.com"
	id, err := client.CreateUser(context.Background(), "ada", UserAttributes{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "user-uuid-1", id)
}

func TestTokenIsCachedAcrossCalls(t *testing.T) {
	fk := &fakeKeycloak{}
	client := newTestClient(t, fk)

	_, err := client.CreateUser(context.Background(), "ada", UserAttributes{})
	require.NoError(t, err)
	enabled := true
	require.NoError(t, client.UpdateUser(context.Background(), "user-uuid-1", UserAttributes{Enabled: &enabled}))

	assert.Equal(t, int32(1), atomic.LoadInt32(&fk.tokenRequests))
}

func TestDeleteUserTreatsNotFoundAsSuccess(t *testing.T) {
	client := newTestClient(t, &fakeKeycloak{})

	assert.NoError(t, client.DeleteUser(context.Background(), "already-gone"))
}

func TestCreateClientReturnsSecret(t *testing.T) {
	client := newTestClient(t, &fakeKeycloak{})

	secret, err := client.CreateClient(context.Background(), "svc-pay", []string{"payments"})
	require.NoError(t, err)
	assert.Equal(t, "generated-secret", secret)
}

func TestRegenerateClientSecret(t *testing.T) {
	client := newTestClient(t, &fakeKeycloak{})

	secret, err := client.RegenerateClientSecret(context.Background(), "svc-pay")
	require.NoError(t, err)
	assert.Equal(t, "generated-secret", secret)
}

func TestServerErrorsMapToErrUnavailable(t *testing.T) {
	client := newTestClient(t, &fakeKeycloak{failAdmin: true})

	_, err := client.CreateUser(context.Background(), "ada", UserAttributes{})
	assert.ErrorIs(t, err, ErrUnavailable)
}
