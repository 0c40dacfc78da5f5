package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cloudcentinel/principal-service/internal/domain"
	"github.com/cloudcentinel/principal-service/pkg/idp"
	"github.com/cloudcentinel/principal-service/pkg/secrets"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCredentialFixture(seed ...*domain.Principal) (*CredentialService, *memPrincipalRepo, *fakeIdP, *memPublisher) {
	principals := newMemPrincipalRepo(seed...)
	idpClient := &fakeIdP{}
	publisher := &memPublisher{}

	svc := NewCredentialService(principals, passTx{}, idpClient, publisher, seededGenerator(), 90*24*time.Hour, fixedClock(testNow))
	return svc, principals, idpClient, publisher
}

func activeServicePrincipal(rotationDue time.Time) *domain.Principal {
	p := domain.NewServicePrincipal("svc-pay", "Pay", nil, uuid.New(), "", testNow.Add(-30*24*time.Hour))
	clientID := "svc-pay"
	p.Service.IdPClientID = &clientID
	p.Service.APIKeyHash = secrets.HashSecret("pk_old-key")
	p.Service.CredentialRotationDate = rotationDue
	return p
}

func TestRotateBeforeDueFails(t *testing.T) {
	p := activeServicePrincipal(testNow.Add(24 * time.Hour))
	svc, principals, idpClient, publisher := newCredentialFixture(p)

	_, err := svc.Rotate(context.Background(), p.ID, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRotationNotDue)

	// Nothing changed and no IdP call happened.
	stored, getErr := principals.GetByID(context.Background(), p.ID)
	require.NoError(t, getErr)
	assert.Equal(t, p.Service.APIKeyHash, stored.Service.APIKeyHash)
	assert.Empty(t, idpClient.callNames())
	assert.Empty(t, publisher.published())
}

func TestRotateWhenDue(t *testing.T) {
	p := activeServicePrincipal(testNow.Add(-time.Hour))
	oldHash := p.Service.APIKeyHash
	svc, principals, idpClient, publisher := newCredentialFixture(p)

	result, err := svc.Rotate(context.Background(), p.ID, false)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.APIKey, secrets.KeyPrefix))
	assert.Equal(t, "rotated-svc-pay", result.IdPClientSecret)
	assert.Equal(t, testNow, result.RotatedAt)

	// The window anchors on the rotation time, not the old due date.
	assert.Equal(t, testNow.Add(90*24*time.Hour), result.CredentialRotationDate)

	stored, err := principals.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, stored.Service.APIKeyHash)
	assert.Equal(t, secrets.HashSecret(result.APIKey), stored.Service.APIKeyHash)
	require.NotNil(t, stored.Service.RotatedAt)
	assert.Equal(t, testNow, *stored.Service.RotatedAt)

	// The old key no longer verifies; the new one does.
	assert.False(t, secrets.VerifySecret("pk_old-key", stored.Service.APIKeyHash))
	assert.True(t, secrets.VerifySecret(result.APIKey, stored.Service.APIKeyHash))

	assert.Equal(t, []string{"regenerate_secret:svc-pay"}, idpClient.callNames())

	event := publisher.last()
	require.NotNil(t, event)
	assert.Equal(t, domain.EventCredentialsRotated, event.Name)
	assert.Equal(t, "false", event.Metadata["forced"])
}

func TestRotateForcedBeforeDue(t *testing.T) {
	p := activeServicePrincipal(testNow.Add(30 * 24 * time.Hour))
	svc, _, _, publisher := newCredentialFixture(p)

	result, err := svc.Rotate(context.Background(), p.ID, true)
	require.NoError(t, err)
	assert.NotEmpty(t, result.APIKey)

	event := publisher.last()
	require.NotNil(t, event)
	assert.Equal(t, "true", event.Metadata["forced"])
}

func TestRotateRejectsHuman(t *testing.T) {
	human := domain.NewHumanPrincipal("ada", "ada@example.com", "Ada", uuid.New(), "", testNow)
	human.Status = domain.PrincipalStatusActive
	svc, _, _, _ := newCredentialFixture(human)

	_, err := svc.Rotate(context.Background(), human.ID, true)
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestRotateRequiresActive(t *testing.T) {
	p := activeServicePrincipal(testNow.Add(-time.Hour))
	p.Status = domain.PrincipalStatusSuspended
	svc, _, _, _ := newCredentialFixture(p)

	_, err := svc.Rotate(context.Background(), p.ID, true)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestRotateIdPFailureAborts(t *testing.T) {
	p := activeServicePrincipal(testNow.Add(-time.Hour))
	oldHash := p.Service.APIKeyHash
	svc, principals, idpClient, publisher := newCredentialFixture(p)
	idpClient.regenerateErr = idp.ErrUnavailable

	_, err := svc.Rotate(context.Background(), p.ID, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExternalSyncFailed)

	// The stored hash is untouched and no event went out.
	stored, getErr := principals.GetByID(context.Background(), p.ID)
	require.NoError(t, getErr)
	assert.Equal(t, oldHash, stored.Service.APIKeyHash)
	assert.Empty(t, publisher.published())
}

func TestRotateSystemPrincipalRegeneratesSecretOnly(t *testing.T) {
	system := domain.NewSystemPrincipal("sys-sap", "SAP", "erp", "aa:bb", nil, uuid.New(), "", testNow)
	clientID := "sys-sap"
	system.System.IdPClientID = &clientID
	svc, _, idpClient, _ := newCredentialFixture(system)

	result, err := svc.Rotate(context.Background(), system.ID, true)
	require.NoError(t, err)

	assert.Empty(t, result.APIKey)
	assert.Equal(t, "rotated-sys-sap", result.IdPClientSecret)
	assert.Equal(t, []string{"regenerate_secret:sys-sap"}, idpClient.callNames())
}
