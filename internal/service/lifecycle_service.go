package service

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/cloudcentinel/principal-service/internal/domain"
	"github.com/cloudcentinel/principal-service/internal/repository"
	"github.com/cloudcentinel/principal-service/pkg/email"
	"github.com/cloudcentinel/principal-service/pkg/events"
	"github.com/cloudcentinel/principal-service/pkg/idp"
	"github.com/google/uuid"
)

// Activation provenance recorded on the result.
const (
	ActivatedBySelf  = "self"
	ActivatedByAdmin = "admin"

	ActivationMethodEmailVerification = "email_verification"
	ActivationMethodAdminOverride     = "admin_override"
	ActivationMethodUnknown           = "unknown"
)

// LifecycleService enforces the principal status state machine and drives its
// side effects: IdP enable/disable and the membership cascade on suspension.
type LifecycleService struct {
	principalRepo  repository.PrincipalRepository
	membershipRepo repository.MembershipRepository
	tx             repository.TxManager
	idpClient      idp.Client
	publisher      events.Publisher
	emailService   email.EmailService
	now            Clock
}

func NewLifecycleService(
	principalRepo repository.PrincipalRepository,
	membershipRepo repository.MembershipRepository,
	tx repository.TxManager,
	idpClient idp.Client,
	publisher events.Publisher,
	emailService email.EmailService,
	now Clock,
) *LifecycleService {
	return &LifecycleService{
		principalRepo:  principalRepo,
		membershipRepo: membershipRepo,
		tx:             tx,
		idpClient:      idpClient,
		publisher:      publisher,
		emailService:   emailService,
		now:            defaultClock(now),
	}
}

// ActivateRequest carries the optional activation inputs.
type ActivateRequest struct {
	VerificationToken string
	AdminOverride     bool
	Reason            string
}

// ActivationResult reports how the principal was activated.
type ActivationResult struct {
	Principal        *domain.Principal
	ActivatedBy      string
	ActivationMethod string
}

// Activate moves a PENDING principal to ACTIVE. The IdP enable call is
// best-effort: activation succeeds even when the IdP is down.
func (s *LifecycleService) Activate(ctx context.Context, principalID uuid.UUID, req ActivateRequest) (*ActivationResult, error) {
	result := &ActivationResult{}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.principalRepo.GetByID(ctx, principalID)
		if err != nil {
			return err
		}

		if !p.CanTransitionTo(domain.PrincipalStatusActive) {
			return domain.NewInvalidStateTransition(domain.LegalSourcesFor(domain.PrincipalStatusActive), p.Status)
		}

		now := s.now()
		p.Status = domain.PrincipalStatusActive
		p.UpdatedAt = now

		if req.VerificationToken != "" && p.Type == domain.PrincipalTypeHuman && p.Human != nil {
			p.Human.EmailVerified = true
		}

		result.ActivatedBy = ActivatedBySelf
		if req.AdminOverride {
			result.ActivatedBy = ActivatedByAdmin
		}
		switch {
		case req.AdminOverride:
			result.ActivationMethod = ActivationMethodAdminOverride
		case req.VerificationToken != "":
			result.ActivationMethod = ActivationMethodEmailVerification
		default:
			result.ActivationMethod = ActivationMethodUnknown
		}

		markSyncOutcome(p, "enable", s.setIdPEnabled(ctx, p, true))

		if err := s.principalRepo.Update(ctx, p); err != nil {
			return err
		}

		result.Principal = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		"activated_by":      result.ActivatedBy,
		"activation_method": result.ActivationMethod,
	}
	if req.Reason != "" {
		metadata["reason"] = req.Reason
	}
	publish(ctx, s.publisher, domain.NewEvent(domain.EventPrincipalActivated, result.Principal, s.now(), metadata))

	return result, nil
}

// Suspend moves an ACTIVE principal to SUSPENDED and cascades every ACTIVE
// membership to SUSPENDED: suspension signals an incident, so all tenant
// access is cut immediately.
func (s *LifecycleService) Suspend(ctx context.Context, principalID uuid.UUID, reason string, incidentTicket *string) (*domain.Principal, error) {
	if reason == "" {
		return nil, domain.NewValidationError("suspension reason is required")
	}

	var suspended *domain.Principal
	var cascaded int

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.principalRepo.GetByID(ctx, principalID)
		if err != nil {
			return err
		}

		if !p.CanTransitionTo(domain.PrincipalStatusSuspended) {
			return domain.NewInvalidStateTransition(domain.LegalSourcesFor(domain.PrincipalStatusSuspended), p.Status)
		}

		p.Status = domain.PrincipalStatusSuspended
		p.UpdatedAt = s.now()

		markSyncOutcome(p, "disable", s.setIdPEnabled(ctx, p, false))

		if err := s.principalRepo.Update(ctx, p); err != nil {
			return err
		}

		cascaded, err = s.membershipRepo.UpdateStatusByPrincipalID(ctx, p.ID, domain.MembershipStatusActive, domain.MembershipStatusSuspended)
		if err != nil {
			return err
		}

		suspended = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		"reason":                reason,
		"suspended_memberships": strconv.Itoa(cascaded),
	}
	if incidentTicket != nil {
		metadata["incident_ticket"] = *incidentTicket
	}
	publish(ctx, s.publisher, domain.NewEvent(domain.EventPrincipalSuspended, suspended, s.now(), metadata))

	s.notifySuspension(ctx, suspended, reason)

	return suspended, nil
}

// Deactivate moves an ACTIVE or SUSPENDED principal to INACTIVE. Memberships
// are deliberately left alone: deactivation is planned offboarding and the
// membership history stays inspectable.
func (s *LifecycleService) Deactivate(ctx context.Context, principalID uuid.UUID, reason string, effectiveDate *time.Time) (*domain.Principal, error) {
	if reason == "" {
		return nil, domain.NewValidationError("deactivation reason is required")
	}

	var deactivated *domain.Principal

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.principalRepo.GetByID(ctx, principalID)
		if err != nil {
			return err
		}

		if !p.CanTransitionTo(domain.PrincipalStatusInactive) {
			return domain.NewInvalidStateTransition(domain.LegalSourcesFor(domain.PrincipalStatusInactive), p.Status)
		}

		p.Status = domain.PrincipalStatusInactive
		p.UpdatedAt = s.now()

		markSyncOutcome(p, "disable", s.setIdPEnabled(ctx, p, false))

		if err := s.principalRepo.Update(ctx, p); err != nil {
			return err
		}

		deactivated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{"reason": reason}
	if effectiveDate != nil {
		metadata["effective_date"] = effectiveDate.Format("2006-01-02")
	}
	publish(ctx, s.publisher, domain.NewEvent(domain.EventPrincipalDeactivated, deactivated, s.now(), metadata))

	return deactivated, nil
}

// setIdPEnabled flips the principal's IdP account or client. Returns the raw
// IdP error; callers decide whether it is fatal.
func (s *LifecycleService) setIdPEnabled(ctx context.Context, p *domain.Principal, enabled bool) error {
	if s.idpClient == nil {
		return nil
	}

	switch {
	case p.Type == domain.PrincipalTypeHuman:
		if p.Human == nil || p.Human.IdPUserID == nil {
			return nil
		}
		return s.idpClient.UpdateUser(ctx, *p.Human.IdPUserID, idp.UserAttributes{Enabled: &enabled})
	default:
		clientID := p.IdPClientID()
		if clientID == nil {
			return nil
		}
		return s.idpClient.UpdateClient(ctx, *clientID, enabled)
	}
}

func (s *LifecycleService) notifySuspension(ctx context.Context, p *domain.Principal, reason string) {
	if s.emailService == nil || p.Type != domain.PrincipalTypeHuman || p.Email == nil || p.Human == nil {
		return
	}
	if err := s.emailService.SendSuspensionEmail(ctx, *p.Email, p.Human.DisplayName, reason); err != nil {
		log.Printf("[LIFECYCLE] Failed to send suspension email for principal %s: %v", p.ID, err)
	}
}
