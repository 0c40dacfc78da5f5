package idp

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the identity provider could not be reached or
// returned a server-side failure. Callers decide per operation whether this
// is fatal or merely logged.
var ErrUnavailable = errors.New("identity provider unavailable")

// UserAttributes carries the mutable attributes of an IdP user record. Nil
// fields are left untouched on update.
type UserAttributes struct {
	Email       *string
	DisplayName *string
	Enabled     *bool
}

// Client is the synchronous contract with the external identity provider.
// Every call may fail; the lifecycle services distinguish must-succeed calls
// (client provisioning, secret regeneration) from fire-and-log calls
// (enable/disable, deletion cleanup).
type Client interface {
	// CreateUser provisions an IdP account and returns its IdP-side id.
	CreateUser(ctx context.Context, username string, attrs UserAttributes) (string, error)
	UpdateUser(ctx context.Context, id string, attrs UserAttributes) error
	DeleteUser(ctx context.Context, id string) error

	// CreateClient provisions an OAuth2 client and returns its secret. The
	// secret is handed to the caller exactly once and never stored here.
	CreateClient(ctx context.Context, clientID string, scopes []string) (string, error)
	UpdateClient(ctx context.Context, clientID string, enabled bool) error
	DeleteClient(ctx context.Context, clientID string) error
	RegenerateClientSecret(ctx context.Context, clientID string) (string, error)
}
