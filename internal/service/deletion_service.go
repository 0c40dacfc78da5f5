package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/cloudcentinel/principal-service/internal/domain"
	"github.com/cloudcentinel/principal-service/internal/repository"
	"github.com/cloudcentinel/principal-service/pkg/email"
	"github.com/cloudcentinel/principal-service/pkg/events"
	"github.com/cloudcentinel/principal-service/pkg/idp"
	"github.com/cloudcentinel/principal-service/pkg/secrets"
	"github.com/google/uuid"
)

// DeletionConfirmation is the literal a GDPR deletion request must carry.
const DeletionConfirmation = "DELETE"

// DeletionService implements GDPR deletion: retention-gated anonymization of
// an INACTIVE principal. The record itself survives as compliance evidence;
// only the PII is destroyed.
type DeletionService struct {
	principalRepo repository.PrincipalRepository
	tx            repository.TxManager
	idpClient     idp.Client
	publisher     events.Publisher
	emailService  email.EmailService
	generator     *secrets.Generator
	retention     time.Duration
	now           Clock
}

func NewDeletionService(
	principalRepo repository.PrincipalRepository,
	tx repository.TxManager,
	idpClient idp.Client,
	publisher events.Publisher,
	emailService email.EmailService,
	generator *secrets.Generator,
	retention time.Duration,
	now Clock,
) *DeletionService {
	if generator == nil {
		generator = secrets.NewGenerator(nil)
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &DeletionService{
		principalRepo: principalRepo,
		tx:            tx,
		idpClient:     idpClient,
		publisher:     publisher,
		emailService:  emailService,
		generator:     generator,
		retention:     retention,
		now:           defaultClock(now),
	}
}

// DeletionRequest carries the confirmation and compliance context.
type DeletionRequest struct {
	Confirmation   string
	GDPRTicket     string
	RequestorEmail string
}

// DeletionResult is the compliance receipt.
type DeletionResult struct {
	AuditReference string
	DeletedAt      time.Time
}

// Delete anonymizes an INACTIVE principal once the retention period since its
// deactivation has elapsed.
func (s *DeletionService) Delete(ctx context.Context, principalID uuid.UUID, req DeletionRequest) (*DeletionResult, error) {
	if req.Confirmation != DeletionConfirmation {
		return nil, domain.NewValidationError(fmt.Sprintf("confirmation must be the literal %q", DeletionConfirmation))
	}

	result := &DeletionResult{}
	var deleted *domain.Principal

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.principalRepo.GetByID(ctx, principalID)
		if err != nil {
			return err
		}

		if p.Status != domain.PrincipalStatusInactive {
			return domain.ErrInvalidStateForDeletion
		}

		now := s.now()
		elapsed := now.Sub(p.UpdatedAt)
		if elapsed < s.retention {
			remaining := int(math.Ceil((s.retention - elapsed).Hours() / 24))
			return domain.NewRetentionPeriodNotMet(remaining)
		}

		suffix, err := s.generator.RandomSuffix(8)
		if err != nil {
			return err
		}
		auditSuffix, err := s.generator.RandomSuffix(8)
		if err != nil {
			return err
		}

		s.eraseIdPRecord(ctx, p)
		s.anonymize(p, suffix, now)

		if err := s.principalRepo.Update(ctx, p); err != nil {
			return err
		}

		result.AuditReference = "aud-" + auditSuffix
		result.DeletedAt = now
		deleted = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, domain.NewEvent(domain.EventPrincipalDeleted, deleted, result.DeletedAt, map[string]string{
		"audit_reference": result.AuditReference,
		"gdpr_ticket":     req.GDPRTicket,
	}))

	if s.emailService != nil && req.RequestorEmail != "" {
		if err := s.emailService.SendDeletionConfirmationEmail(ctx, req.RequestorEmail, result.AuditReference); err != nil {
			log.Printf("[GDPR] Failed to send deletion confirmation to %s: %v", req.RequestorEmail, err)
		}
	}

	return result, nil
}

// anonymize strips PII and pins the principal in its terminal state. The
// pseudonymous username keeps the uniqueness invariant intact.
func (s *DeletionService) anonymize(p *domain.Principal, suffix string, now time.Time) {
	p.Status = domain.PrincipalStatusDeleted
	p.Username = "deleted_user_" + suffix
	p.Email = nil
	p.ContextTags = nil
	p.UpdatedAt = now

	switch p.Type {
	case domain.PrincipalTypeHuman:
		if p.Human != nil {
			p.Human.DisplayName = ""
			p.Human.PhoneNumber = nil
			p.Human.Locale = nil
			p.Human.Timezone = nil
			p.Human.IdPUserID = nil
		}
	case domain.PrincipalTypeDevice:
		if p.Device != nil {
			p.Device.LocationInfo = nil
		}
	}
}

// eraseIdPRecord removes the principal's IdP footprint. Best-effort: a failed
// IdP cleanup never blocks the compliance deletion.
func (s *DeletionService) eraseIdPRecord(ctx context.Context, p *domain.Principal) {
	if s.idpClient == nil {
		return
	}

	var err error
	switch {
	case p.Type == domain.PrincipalTypeHuman && p.Human != nil && p.Human.IdPUserID != nil:
		err = s.idpClient.DeleteUser(ctx, *p.Human.IdPUserID)
	default:
		if clientID := p.IdPClientID(); clientID != nil {
			err = s.idpClient.DeleteClient(ctx, *clientID)
		}
	}
	if err != nil {
		log.Printf("[GDPR] Best-effort IdP cleanup failed for principal %s: %v", p.ID, err)
	}
}
