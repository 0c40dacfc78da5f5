package service

import (
	"context"
	"testing"
	"time"

	"github.com/cloudcentinel/principal-service/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMembershipFixture(tenants staticTenants, seed ...*domain.Principal) (*MembershipService, *memMembershipRepo) {
	principals := newMemPrincipalRepo(seed...)
	memberships := &memMembershipRepo{}
	svc := NewMembershipService(principals, memberships, tenants, passTx{}, fixedClock(testNow))
	return svc, memberships
}

func activeHuman(primaryTenant uuid.UUID) *domain.Principal {
	p := domain.NewHumanPrincipal("ada", "ada@example.com", "Ada", primaryTenant, "", testNow)
	p.Status = domain.PrincipalStatusActive
	return p
}

func TestAddMembership(t *testing.T) {
	primary := uuid.New()
	other := uuid.New()
	human := activeHuman(primary)
	svc, memberships := newMembershipFixture(staticTenants{primary: true, other: true}, human)

	invitedBy := "admin@example.com"
	m, err := svc.AddMembership(context.Background(), human.ID, other, time.Time{}, nil, &invitedBy)
	require.NoError(t, err)

	assert.Equal(t, other, m.TenantID)
	assert.Equal(t, domain.MembershipStatusActive, m.Status)
	assert.Equal(t, testNow, m.ValidFrom)
	assert.Nil(t, m.ValidTo)
	require.NotNil(t, m.InvitedBy)
	assert.Equal(t, "admin@example.com", *m.InvitedBy)

	stored, err := memberships.FindByPrincipalIDAndTenantIDAndStatus(context.Background(), human.ID, other, domain.MembershipStatusActive)
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestAddMembershipDuplicate(t *testing.T) {
	primary := uuid.New()
	other := uuid.New()
	human := activeHuman(primary)
	svc, _ := newMembershipFixture(staticTenants{primary: true, other: true}, human)

	_, err := svc.AddMembership(context.Background(), human.ID, other, time.Time{}, nil, nil)
	require.NoError(t, err)

	_, err = svc.AddMembership(context.Background(), human.ID, other, time.Time{}, nil, nil)
	assert.ErrorIs(t, err, domain.ErrMembershipAlreadyExists)
}

func TestAddMembershipRequiresActivePrincipal(t *testing.T) {
	primary := uuid.New()
	human := domain.NewHumanPrincipal("ada", "ada@example.com", "Ada", primary, "", testNow)
	svc, _ := newMembershipFixture(staticTenants{primary: true}, human)

	_, err := svc.AddMembership(context.Background(), human.ID, primary, time.Time{}, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestAddMembershipUnknownTenant(t *testing.T) {
	primary := uuid.New()
	human := activeHuman(primary)
	svc, _ := newMembershipFixture(staticTenants{primary: true}, human)

	_, err := svc.AddMembership(context.Background(), human.ID, uuid.New(), time.Time{}, nil, nil)
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
}

func TestRemoveMembership(t *testing.T) {
	primary := uuid.New()
	other := uuid.New()
	human := activeHuman(primary)
	svc, memberships := newMembershipFixture(staticTenants{primary: true, other: true}, human)

	_, err := svc.AddMembership(context.Background(), human.ID, other, time.Time{}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveMembership(context.Background(), human.ID, other))

	// Logically expired, never physically removed.
	active, err := memberships.FindByPrincipalIDAndTenantIDAndStatus(context.Background(), human.ID, other, domain.MembershipStatusActive)
	require.NoError(t, err)
	assert.Nil(t, active)

	all, total, err := memberships.FindByPrincipalID(context.Background(), human.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, domain.MembershipStatusExpired, all[0].Status)
	require.NotNil(t, all[0].ValidTo)
	assert.Equal(t, testNow, *all[0].ValidTo)
}

func TestRemoveMembershipPrimaryTenant(t *testing.T) {
	primary := uuid.New()
	human := activeHuman(primary)
	svc, _ := newMembershipFixture(staticTenants{primary: true}, human)

	err := svc.RemoveMembership(context.Background(), human.ID, primary)
	assert.ErrorIs(t, err, domain.ErrCannotRemovePrimaryTenant)
}

func TestRemoveMembershipNotFound(t *testing.T) {
	primary := uuid.New()
	other := uuid.New()
	human := activeHuman(primary)
	svc, _ := newMembershipFixture(staticTenants{primary: true, other: true}, human)

	err := svc.RemoveMembership(context.Background(), human.ID, other)
	assert.ErrorIs(t, err, domain.ErrMembershipNotFound)
}

func TestListMembershipsFlagsPrimary(t *testing.T) {
	primary := uuid.New()
	other := uuid.New()
	human := activeHuman(primary)
	svc, memberships := newMembershipFixture(staticTenants{primary: true, other: true}, human)

	require.NoError(t, memberships.Create(context.Background(), domain.NewTenantMembership(human.ID, primary, testNow, nil, nil, testNow)))
	_, err := svc.AddMembership(context.Background(), human.ID, other, time.Time{}, nil, nil)
	require.NoError(t, err)

	views, total, err := svc.ListMemberships(context.Background(), human.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	byTenant := make(map[uuid.UUID]bool, len(views))
	for _, v := range views {
		byTenant[v.TenantID] = v.IsPrimary
	}
	assert.True(t, byTenant[primary])
	assert.False(t, byTenant[other])
}
