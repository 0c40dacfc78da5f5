package service

import (
	"context"
	"strconv"
	"time"

	"github.com/cloudcentinel/principal-service/internal/domain"
	"github.com/cloudcentinel/principal-service/internal/repository"
	"github.com/cloudcentinel/principal-service/pkg/events"
	"github.com/cloudcentinel/principal-service/pkg/idp"
	"github.com/cloudcentinel/principal-service/pkg/secrets"
	"github.com/google/uuid"
)

// CredentialService rotates machine-principal credentials. Unlike the
// lifecycle side effects, the IdP secret regeneration here is mandatory: a
// failed IdP call aborts the rotation and nothing is committed.
type CredentialService struct {
	principalRepo  repository.PrincipalRepository
	tx             repository.TxManager
	idpClient      idp.Client
	publisher      events.Publisher
	generator      *secrets.Generator
	rotationWindow time.Duration
	now            Clock
}

func NewCredentialService(
	principalRepo repository.PrincipalRepository,
	tx repository.TxManager,
	idpClient idp.Client,
	publisher events.Publisher,
	generator *secrets.Generator,
	rotationWindow time.Duration,
	now Clock,
) *CredentialService {
	if generator == nil {
		generator = secrets.NewGenerator(nil)
	}
	if rotationWindow <= 0 {
		rotationWindow = 90 * 24 * time.Hour
	}
	return &CredentialService{
		principalRepo:  principalRepo,
		tx:             tx,
		idpClient:      idpClient,
		publisher:      publisher,
		generator:      generator,
		rotationWindow: rotationWindow,
		now:            defaultClock(now),
	}
}

// RotationResult carries the new secrets. They are returned exactly once;
// only their hashes survive the call.
type RotationResult struct {
	PrincipalID            uuid.UUID
	APIKey                 string
	IdPClientSecret        string
	CredentialRotationDate time.Time
	RotatedAt              time.Time
}

// Rotate replaces the credentials of an ACTIVE machine principal. Without
// force, rotation before the due date fails with RotationNotDue. The new
// rotation date is anchored on the rotation time, not the old due date, so a
// late rotation still yields a full window.
func (s *CredentialService) Rotate(ctx context.Context, principalID uuid.UUID, force bool) (*RotationResult, error) {
	result := &RotationResult{PrincipalID: principalID}
	var rotated *domain.Principal

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.principalRepo.GetByID(ctx, principalID)
		if err != nil {
			return err
		}

		if !p.IsMachine() {
			return domain.NewValidationError("credential rotation applies to machine principals only")
		}

		if p.Status != domain.PrincipalStatusActive {
			return domain.NewInvalidStateTransition([]domain.PrincipalStatus{domain.PrincipalStatusActive}, p.Status)
		}

		now := s.now()

		if p.Type == domain.PrincipalTypeService && p.Service != nil {
			if !force && now.Before(p.Service.CredentialRotationDate) {
				return domain.ErrRotationNotDue
			}

			apiKey, err := s.generator.GenerateAPIKey()
			if err != nil {
				return err
			}

			p.Service.APIKeyHash = secrets.HashSecret(apiKey)
			p.Service.CredentialRotationDate = now.Add(s.rotationWindow)
			rotatedAt := now
			p.Service.RotatedAt = &rotatedAt

			result.APIKey = apiKey
			result.CredentialRotationDate = p.Service.CredentialRotationDate
		}

		if clientID := p.IdPClientID(); clientID != nil && s.idpClient != nil {
			secret, err := s.idpClient.RegenerateClientSecret(ctx, *clientID)
			if err != nil {
				return domain.NewExternalSyncError("regenerate_client_secret", err)
			}
			result.IdPClientSecret = secret
		}

		p.UpdatedAt = now
		result.RotatedAt = now
		rotated = p

		return s.principalRepo.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{"forced": strconv.FormatBool(force)}
	if !result.CredentialRotationDate.IsZero() {
		metadata["next_rotation_date"] = result.CredentialRotationDate.Format(time.RFC3339)
	}
	publish(ctx, s.publisher, domain.NewEvent(domain.EventCredentialsRotated, rotated, result.RotatedAt, metadata))

	return result, nil
}
