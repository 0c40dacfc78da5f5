package domain

import (
	"time"

	"github.com/google/uuid"
)

// MembershipStatus represents the status of a tenant membership
type MembershipStatus string

const (
	MembershipStatusActive    MembershipStatus = "active"
	MembershipStatusSuspended MembershipStatus = "suspended"
	MembershipStatusExpired   MembershipStatus = "expired"
)

// TenantMembership associates a principal with a tenant. Memberships are never
// physically deleted; removal sets status to EXPIRED so the audit trail stays
// intact.
type TenantMembership struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	PrincipalID uuid.UUID        `json:"principal_id" db:"principal_id"`
	TenantID    uuid.UUID        `json:"tenant_id" db:"tenant_id"`
	ValidFrom   time.Time        `json:"valid_from" db:"valid_from"`
	ValidTo     *time.Time       `json:"valid_to,omitempty" db:"valid_to"`
	Status      MembershipStatus `json:"status" db:"status"`
	InvitedBy   *string          `json:"invited_by,omitempty" db:"invited_by"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// NewTenantMembership builds an ACTIVE membership. validFrom defaults to now
// when zero.
func NewTenantMembership(principalID, tenantID uuid.UUID, validFrom time.Time, validTo *time.Time, invitedBy *string, now time.Time) *TenantMembership {
	if validFrom.IsZero() {
		validFrom = now
	}
	return &TenantMembership{
		ID:          uuid.New(),
		PrincipalID: principalID,
		TenantID:    tenantID,
		ValidFrom:   validFrom,
		ValidTo:     validTo,
		Status:      MembershipStatusActive,
		InvitedBy:   invitedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MembershipView is a membership annotated for listing.
type MembershipView struct {
	TenantMembership
	IsPrimary bool `json:"is_primary"`
}
