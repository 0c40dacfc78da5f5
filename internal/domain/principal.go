package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PrincipalType discriminates the four principal variants.
type PrincipalType string

const (
	PrincipalTypeHuman   PrincipalType = "human"
	PrincipalTypeService PrincipalType = "service"
	PrincipalTypeSystem  PrincipalType = "system"
	PrincipalTypeDevice  PrincipalType = "device"
)

// PrincipalStatus represents the lifecycle state of a principal
type PrincipalStatus string

const (
	PrincipalStatusPending   PrincipalStatus = "pending"
	PrincipalStatusActive    PrincipalStatus = "active"
	PrincipalStatusSuspended PrincipalStatus = "suspended"
	PrincipalStatusInactive  PrincipalStatus = "inactive"
	PrincipalStatusDeleted   PrincipalStatus = "deleted"
)

// SyncStatus tracks the state of the principal's mirror in the external IdP.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
)

// MaxContextTagsBytes caps the serialized size of a principal's context tags.
const MaxContextTagsBytes = 10 * 1024

// ContextTags is an opaque key/value map attached to a principal,
// stored as JSONB.
type ContextTags map[string]string

func (t ContextTags) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

func (t *ContextTags) Scan(src interface{}) error {
	if src == nil {
		*t = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into ContextTags", src)
	}
	return json.Unmarshal(b, t)
}

// ValidateSize checks the serialized tag map against MaxContextTagsBytes.
func (t ContextTags) ValidateSize() error {
	if t == nil {
		return nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if len(b) > MaxContextTagsBytes {
		return NewValidationError(fmt.Sprintf("context tags exceed %d bytes", MaxContextTagsBytes))
	}
	return nil
}

// Principal is the common header shared by all four variants. Exactly one of
// Human, Service, System or Device is non-nil, matching Type.
type Principal struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	Type            PrincipalType   `json:"type" db:"type"`
	Username        string          `json:"username" db:"username"`
	Email           *string         `json:"email,omitempty" db:"email"`
	PrimaryTenantID uuid.UUID       `json:"primary_tenant_id" db:"primary_tenant_id"`
	Status          PrincipalStatus `json:"status" db:"status"`
	ContextTags     ContextTags     `json:"context_tags,omitempty" db:"context_tags"`
	SyncStatus      SyncStatus      `json:"sync_status" db:"sync_status"`
	SyncRetryCount  int             `json:"sync_retry_count" db:"sync_retry_count"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
	CreatedBy       string          `json:"created_by" db:"created_by"`

	Human   *HumanProfile   `json:"human,omitempty"`
	Service *ServiceProfile `json:"service,omitempty"`
	System  *SystemProfile  `json:"system,omitempty"`
	Device  *DeviceProfile  `json:"device,omitempty"`
}

// HumanProfile holds the Human-variant payload.
type HumanProfile struct {
	DisplayName   string  `json:"display_name" db:"display_name"`
	EmailVerified bool    `json:"email_verified" db:"email_verified"`
	MFAEnabled    bool    `json:"mfa_enabled" db:"mfa_enabled"`
	PhoneNumber   *string `json:"phone_number,omitempty" db:"phone_number"`
	Locale        *string `json:"locale,omitempty" db:"locale"`
	Timezone      *string `json:"timezone,omitempty" db:"timezone"`
	IdPUserID     *string `json:"-" db:"idp_user_id"`
}

// ServiceProfile holds the Service-variant payload. APIKeyHash is the only
// stored form of the key; the plaintext is returned exactly once at creation
// and rotation.
type ServiceProfile struct {
	ServiceName            string     `json:"service_name" db:"service_name"`
	AllowedScopes          []string   `json:"allowed_scopes" db:"-"`
	APIKeyHash             string     `json:"-" db:"api_key_hash"`
	CredentialRotationDate time.Time  `json:"credential_rotation_date" db:"credential_rotation_date"`
	RotatedAt              *time.Time `json:"rotated_at,omitempty" db:"rotated_at"`
	IdPClientID            *string    `json:"idp_client_id,omitempty" db:"idp_client_id"`
}

// SystemProfile holds the System-variant payload.
type SystemProfile struct {
	SystemIdentifier      string   `json:"system_identifier" db:"system_identifier"`
	IntegrationType       string   `json:"integration_type" db:"integration_type"`
	CertificateThumbprint string   `json:"certificate_thumbprint" db:"certificate_thumbprint"`
	AllowedOperations     []string `json:"allowed_operations" db:"-"`
	IdPClientID           *string  `json:"idp_client_id,omitempty" db:"idp_client_id"`
}

// DeviceProfile holds the Device-variant payload.
type DeviceProfile struct {
	DeviceIdentifier      string     `json:"device_identifier" db:"device_identifier"`
	DeviceType            string     `json:"device_type" db:"device_type"`
	CertificateThumbprint string     `json:"certificate_thumbprint" db:"certificate_thumbprint"`
	FirmwareVersion       *string    `json:"firmware_version,omitempty" db:"firmware_version"`
	LocationInfo          *string    `json:"location_info,omitempty" db:"location_info"`
	LastHeartbeatAt       *time.Time `json:"last_heartbeat_at,omitempty" db:"last_heartbeat_at"`
	IdPClientID           *string    `json:"idp_client_id,omitempty" db:"idp_client_id"`
}

func newPrincipalHeader(typ PrincipalType, username string, primaryTenantID uuid.UUID, createdBy string, now time.Time) Principal {
	return Principal{
		ID:              uuid.New(),
		Type:            typ,
		Username:        strings.ToLower(strings.TrimSpace(username)),
		PrimaryTenantID: primaryTenantID,
		SyncStatus:      SyncStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		CreatedBy:       createdBy,
	}
}

// NewHumanPrincipal builds a Human principal in PENDING status. Humans require
// explicit activation (email verification or admin override).
func NewHumanPrincipal(username, email, displayName string, primaryTenantID uuid.UUID, createdBy string, now time.Time) *Principal {
	p := newPrincipalHeader(PrincipalTypeHuman, username, primaryTenantID, createdBy, now)
	p.Status = PrincipalStatusPending
	e := strings.ToLower(strings.TrimSpace(email))
	p.Email = &e
	p.Human = &HumanProfile{
		DisplayName: displayName,
	}
	return &p
}

// NewServicePrincipal builds a Service principal. Machine principals skip the
// PENDING stage and are born ACTIVE.
func NewServicePrincipal(username, serviceName string, allowedScopes []string, primaryTenantID uuid.UUID, createdBy string, now time.Time) *Principal {
	p := newPrincipalHeader(PrincipalTypeService, username, primaryTenantID, createdBy, now)
	p.Status = PrincipalStatusActive
	p.Service = &ServiceProfile{
		ServiceName:   serviceName,
		AllowedScopes: allowedScopes,
	}
	return &p
}

// NewSystemPrincipal builds a System principal (born ACTIVE).
func NewSystemPrincipal(username, systemIdentifier, integrationType, certificateThumbprint string, allowedOperations []string, primaryTenantID uuid.UUID, createdBy string, now time.Time) *Principal {
	p := newPrincipalHeader(PrincipalTypeSystem, username, primaryTenantID, createdBy, now)
	p.Status = PrincipalStatusActive
	p.System = &SystemProfile{
		SystemIdentifier:      systemIdentifier,
		IntegrationType:       integrationType,
		CertificateThumbprint: certificateThumbprint,
		AllowedOperations:     allowedOperations,
	}
	return &p
}

// NewDevicePrincipal builds a Device principal (born ACTIVE).
func NewDevicePrincipal(username, deviceIdentifier, deviceType, certificateThumbprint string, primaryTenantID uuid.UUID, createdBy string, now time.Time) *Principal {
	p := newPrincipalHeader(PrincipalTypeDevice, username, primaryTenantID, createdBy, now)
	p.Status = PrincipalStatusActive
	p.Device = &DeviceProfile{
		DeviceIdentifier:      deviceIdentifier,
		DeviceType:            deviceType,
		CertificateThumbprint: certificateThumbprint,
	}
	return &p
}

// IsMachine reports whether the principal is a non-human variant holding
// long-lived credentials.
func (p *Principal) IsMachine() bool {
	return p.Type == PrincipalTypeService || p.Type == PrincipalTypeSystem || p.Type == PrincipalTypeDevice
}

// IdPClientID returns the IdP client identifier of a machine principal, or nil.
func (p *Principal) IdPClientID() *string {
	switch p.Type {
	case PrincipalTypeService:
		if p.Service != nil {
			return p.Service.IdPClientID
		}
	case PrincipalTypeSystem:
		if p.System != nil {
			return p.System.IdPClientID
		}
	case PrincipalTypeDevice:
		if p.Device != nil {
			return p.Device.IdPClientID
		}
	}
	return nil
}

// CanTransitionTo reports whether the lifecycle state machine permits moving
// from the principal's current status to target.
func (p *Principal) CanTransitionTo(target PrincipalStatus) bool {
	for _, s := range legalSources(target) {
		if p.Status == s {
			return true
		}
	}
	return false
}

// legalSources returns the set of source statuses from which target is
// reachable. DELETED is terminal and never a legal source.
func legalSources(target PrincipalStatus) []PrincipalStatus {
	switch target {
	case PrincipalStatusActive:
		return []PrincipalStatus{PrincipalStatusPending}
	case PrincipalStatusSuspended:
		return []PrincipalStatus{PrincipalStatusActive}
	case PrincipalStatusInactive:
		return []PrincipalStatus{PrincipalStatusActive, PrincipalStatusSuspended}
	case PrincipalStatusDeleted:
		return []PrincipalStatus{PrincipalStatusInactive}
	default:
		return nil
	}
}

// LegalSourcesFor exposes the transition table for error reporting.
func LegalSourcesFor(target PrincipalStatus) []PrincipalStatus {
	return legalSources(target)
}
