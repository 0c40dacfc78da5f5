package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cloudcentinel/principal-service/internal/domain"
	"github.com/cloudcentinel/principal-service/pkg/idp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeletionFixture(seed ...*domain.Principal) (*DeletionService, *memPrincipalRepo, *fakeIdP, *memPublisher) {
	principals := newMemPrincipalRepo(seed...)
	idpClient := &fakeIdP{}
	publisher := &memPublisher{}

	svc := NewDeletionService(principals, passTx{}, idpClient, publisher, nil, seededGenerator(), 30*24*time.Hour, fixedClock(testNow))
	return svc, principals, idpClient, publisher
}

// inactiveHuman returns a human deactivated `age` ago.
func inactiveHuman(age time.Duration) *domain.Principal {
	p := domain.NewHumanPrincipal("ada", "ada@example.com", "Ada Lovelace", uuid.New(), "", testNow.Add(-age-time.Hour))
	phone := "+44 20 7946 0000"
	idpID := "idp-ada"
	p.Human.PhoneNumber = &phone
	p.Human.IdPUserID = &idpID
	p.Status = domain.PrincipalStatusInactive
	p.UpdatedAt = testNow.Add(-age)
	p.ContextTags = domain.ContextTags{"team": "research"}
	return p
}

func TestDeleteRequiresConfirmationLiteral(t *testing.T) {
	human := inactiveHuman(40 * 24 * time.Hour)
	svc, principals, _, _ := newDeletionFixture(human)

	for _, confirmation := range []string{"", "delete", "DELETE ", "yes"} {
		_, err := svc.Delete(context.Background(), human.ID, DeletionRequest{Confirmation: confirmation})
		require.Error(t, err, "confirmation %q", confirmation)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	}

	stored, err := principals.GetByID(context.Background(), human.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PrincipalStatusInactive, stored.Status)
}

func TestDeleteRequiresInactiveStatus(t *testing.T) {
	human := inactiveHuman(40 * 24 * time.Hour)
	human.Status = domain.PrincipalStatusActive
	svc, principals, _, _ := newDeletionFixture(human)

	_, err := svc.Delete(context.Background(), human.ID, DeletionRequest{Confirmation: "DELETE"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidStateForDeletion)

	// The record was not mutated.
	stored, getErr := principals.GetByID(context.Background(), human.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.PrincipalStatusActive, stored.Status)
	assert.Equal(t, "ada", stored.Username)
}

func TestDeleteRetentionNotMet(t *testing.T) {
	// Deactivated one day ago with a 30 day retention: 29 days remaining.
	human := inactiveHuman(24 * time.Hour)
	svc, _, _, _ := newDeletionFixture(human)

	_, err := svc.Delete(context.Background(), human.ID, DeletionRequest{Confirmation: "DELETE"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRetentionPeriodNotMet)

	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "29", de.Details["days_remaining"])
}

func TestDeleteAnonymizes(t *testing.T) {
	human := inactiveHuman(40 * 24 * time.Hour)
	svc, principals, idpClient, publisher := newDeletionFixture(human)

	result, err := svc.Delete(context.Background(), human.ID, DeletionRequest{
		Confirmation: "DELETE",
		GDPRTicket:   "GDPR-1042",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.AuditReference, "aud-"))
	assert.Len(t, result.AuditReference, len("aud-")+16)
	assert.Equal(t, testNow, result.DeletedAt)

	// The record survives pseudonymized; all PII is gone.
	stored, err := principals.GetByID(context.Background(), human.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PrincipalStatusDeleted, stored.Status)
	assert.True(t, strings.HasPrefix(stored.Username, "deleted_user_"))
	assert.Nil(t, stored.Email)
	assert.Nil(t, stored.ContextTags)
	assert.Empty(t, stored.Human.DisplayName)
	assert.Nil(t, stored.Human.PhoneNumber)
	assert.Nil(t, stored.Human.IdPUserID)

	// Best-effort IdP cleanup was attempted for the linked account.
	assert.Equal(t, []string{"delete_user:idp-ada"}, idpClient.callNames())

	event := publisher.last()
	require.NotNil(t, event)
	assert.Equal(t, domain.EventPrincipalDeleted, event.Name)
	assert.Equal(t, result.AuditReference, event.Metadata["audit_reference"])
	assert.Equal(t, "GDPR-1042", event.Metadata["gdpr_ticket"])
}

func TestDeleteSurvivesIdPOutage(t *testing.T) {
	human := inactiveHuman(40 * 24 * time.Hour)
	svc, principals, idpClient, _ := newDeletionFixture(human)
	idpClient.deleteUserErr = idp.ErrUnavailable

	_, err := svc.Delete(context.Background(), human.ID, DeletionRequest{Confirmation: "DELETE"})
	require.NoError(t, err)

	stored, err := principals.GetByID(context.Background(), human.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PrincipalStatusDeleted, stored.Status)
}

func TestDeleteMachinePrincipalRemovesClient(t *testing.T) {
	device := domain.NewDevicePrincipal("dev-sensor", "sensor-1", "sensor", "aa:bb", uuid.New(), "", testNow.Add(-60*24*time.Hour))
	clientID := "dev-sensor"
	location := "warehouse-7"
	device.Device.IdPClientID = &clientID
	device.Device.LocationInfo = &location
	device.Status = domain.PrincipalStatusInactive
	device.UpdatedAt = testNow.Add(-40 * 24 * time.Hour)
	svc, principals, idpClient, _ := newDeletionFixture(device)

	_, err := svc.Delete(context.Background(), device.ID, DeletionRequest{Confirmation: "DELETE"})
	require.NoError(t, err)

	stored, err := principals.GetByID(context.Background(), device.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Device.LocationInfo)
	assert.Equal(t, []string{"delete_client:dev-sensor"}, idpClient.callNames())
}
