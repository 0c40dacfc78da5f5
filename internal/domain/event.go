package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event names emitted by the registry. Delivery is at-least-once; ordering is
// only guaranteed per principal stream, not across principals.
const (
	EventPrincipalCreated        = "principal.created"
	EventServicePrincipalCreated = "service_principal.created"
	EventSystemPrincipalCreated  = "system_principal.created"
	EventDevicePrincipalCreated  = "device_principal.created"
	EventPrincipalActivated      = "principal.activated"
	EventPrincipalSuspended      = "principal.suspended"
	EventPrincipalDeactivated    = "principal.deactivated"
	EventPrincipalDeleted        = "principal.deleted"
	EventProfileUpdated          = "profile.updated"
	EventCredentialsRotated      = "credentials.rotated"
	EventHeartbeatUpdated        = "heartbeat.updated"
)

// Event is a domain event describing a committed state change.
type Event struct {
	Name          string            `json:"name"`
	PrincipalID   uuid.UUID         `json:"principal_id"`
	PrincipalType PrincipalType     `json:"principal_type"`
	Status        PrincipalStatus   `json:"status"`
	OccurredAt    time.Time         `json:"occurred_at"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewEvent builds an event from the principal's post-transition state.
func NewEvent(name string, p *Principal, occurredAt time.Time, metadata map[string]string) Event {
	return Event{
		Name:          name,
		PrincipalID:   p.ID,
		PrincipalType: p.Type,
		Status:        p.Status,
		OccurredAt:    occurredAt,
		Metadata:      metadata,
	}
}
