package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// KeycloakConfig holds the connection settings for the Keycloak admin API.
type KeycloakConfig struct {
	BaseURL      string        // e.g. https://keycloak.internal
	Realm        string        // realm holding the platform principals
	ClientID     string        // admin service account client
	ClientSecret string
	Timeout      time.Duration // HTTP request timeout
}

// KeycloakClient implements Client against the Keycloak admin REST API.
type KeycloakClient struct {
	client *http.Client
	config *KeycloakConfig

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewKeycloakClient creates a new Keycloak admin API client
func NewKeycloakClient(config *KeycloakConfig) (*KeycloakClient, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("keycloak base URL is required")
	}
	if config.Realm == "" {
		return nil, fmt.Errorf("keycloak realm is required")
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &KeycloakClient{
		client: &http.Client{
			Timeout: timeout,
		},
		config: config,
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a cached admin access token, refreshing it via the
// client-credentials grant when expired.
func (c *KeycloakClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.config.ClientID)
	form.Set("client_secret", c.config.ClientSecret)

	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.config.BaseURL, c.config.Realm)
	req, err := http.NewRequestWithContext(ctx, "POST", tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: token endpoint returned %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}

	c.accessToken = tok.AccessToken
	// Refresh one minute early to avoid using a token mid-expiry.
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)

	return c.accessToken, nil
}

// do executes an authenticated admin API request and returns the response.
func (c *KeycloakClient) do(ctx context.Context, method, path string, payload interface{}) (*http.Response, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	adminURL := fmt.Sprintf("%s/admin/realms/%s%s", c.config.BaseURL, c.config.Realm, path)
	req, err := http.NewRequestWithContext(ctx, method, adminURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 500 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%w: keycloak returned %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	}

	return resp, nil
}

type keycloakUser struct {
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	Name     string   `json:"firstName,omitempty"`
	Enabled  *bool    `json:"enabled,omitempty"`
	Groups   []string `json:"groups,omitempty"`
}

// CreateUser provisions a Keycloak user and returns the Keycloak-side id
// parsed from the Location header.
func (c *KeycloakClient) CreateUser(ctx context.Context, username string, attrs UserAttributes) (string, error) {
	enabled := false
	if attrs.Enabled != nil {
		enabled = *attrs.Enabled
	}

	user := keycloakUser{
		Username: username,
		Enabled:  &enabled,
	}
	if attrs.Email != nil {
		user.Email = *attrs.Email
	}
	if attrs.DisplayName != nil {
		user.Name = *attrs.DisplayName
	}

	resp, err := c.do(ctx, "POST", "/users", user)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to create keycloak user: status %d: %s", resp.StatusCode, string(body))
	}

	location := resp.Header.Get("Location")
	idx := strings.LastIndex(location, "/")
	if idx < 0 || idx == len(location)-1 {
		return "", fmt.Errorf("keycloak did not return a user location")
	}

	return location[idx+1:], nil
}

func (c *KeycloakClient) UpdateUser(ctx context.Context, id string, attrs UserAttributes) error {
	user := keycloakUser{Enabled: attrs.Enabled}
	if attrs.Email != nil {
		user.Email = *attrs.Email
	}
	if attrs.DisplayName != nil {
		user.Name = *attrs.DisplayName
	}

	resp, err := c.do(ctx, "PUT", "/users/"+id, user)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("failed to update keycloak user %s: status %d", id, resp.StatusCode)
	}

	return nil
}

func (c *KeycloakClient) DeleteUser(ctx context.Context, id string) error {
	resp, err := c.do(ctx, "DELETE", "/users/"+id, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Already gone is fine: deletion must be idempotent for cleanup retries.
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("failed to delete keycloak user %s: status %d", id, resp.StatusCode)
	}

	return nil
}

type keycloakClientRep struct {
	ID                     string   `json:"id,omitempty"`
	ClientID               string   `json:"clientId"`
	Enabled                *bool    `json:"enabled,omitempty"`
	ServiceAccountsEnabled bool     `json:"serviceAccountsEnabled,omitempty"`
	StandardFlowEnabled    bool     `json:"standardFlowEnabled"`
	DefaultClientScopes    []string `json:"defaultClientScopes,omitempty"`
}

type clientSecretResponse struct {
	Value string `json:"value"`
}

// CreateClient provisions a confidential OAuth2 client for a machine
// principal and returns its generated secret.
func (c *KeycloakClient) CreateClient(ctx context.Context, clientID string, scopes []string) (string, error) {
	enabled := true
	rep := keycloakClientRep{
		ClientID:               clientID,
		Enabled:                &enabled,
		ServiceAccountsEnabled: true,
		StandardFlowEnabled:    false,
		DefaultClientScopes:    scopes,
	}

	resp, err := c.do(ctx, "POST", "/clients", rep)
	if err != nil {
		return "", err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("failed to create keycloak client %s: status %d", clientID, resp.StatusCode)
	}

	return c.RegenerateClientSecret(ctx, clientID)
}

// lookupClientUUID resolves a clientId to Keycloak's internal client UUID.
func (c *KeycloakClient) lookupClientUUID(ctx context.Context, clientID string) (string, error) {
	resp, err := c.do(ctx, "GET", "/clients?clientId="+url.QueryEscape(clientID), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var clients []keycloakClientRep
	if err := json.NewDecoder(resp.Body).Decode(&clients); err != nil {
		return "", fmt.Errorf("failed to parse client lookup response: %w", err)
	}

	if len(clients) == 0 {
		return "", fmt.Errorf("keycloak client %s not found", clientID)
	}

	return clients[0].ID, nil
}

func (c *KeycloakClient) UpdateClient(ctx context.Context, clientID string, enabled bool) error {
	id, err := c.lookupClientUUID(ctx, clientID)
	if err != nil {
		return err
	}

	rep := keycloakClientRep{ClientID: clientID, Enabled: &enabled}
	resp, err := c.do(ctx, "PUT", "/clients/"+id, rep)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("failed to update keycloak client %s: status %d", clientID, resp.StatusCode)
	}

	return nil
}

func (c *KeycloakClient) DeleteClient(ctx context.Context, clientID string) error {
	id, err := c.lookupClientUUID(ctx, clientID)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, "DELETE", "/clients/"+id, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("failed to delete keycloak client %s: status %d", clientID, resp.StatusCode)
	}

	return nil
}

// RegenerateClientSecret rotates the client secret and returns the new value.
func (c *KeycloakClient) RegenerateClientSecret(ctx context.Context, clientID string) (string, error) {
	id, err := c.lookupClientUUID(ctx, clientID)
	if err != nil {
		return "", err
	}

	resp, err := c.do(ctx, "POST", "/clients/"+id+"/client-secret", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to regenerate secret for client %s: status %d", clientID, resp.StatusCode)
	}

	var secret clientSecretResponse
	if err := json.NewDecoder(resp.Body).Decode(&secret); err != nil {
		return "", fmt.Errorf("failed to parse client secret response: %w", err)
	}

	return secret.Value, nil
}
