package service

import (
	"context"
	"log"
	"time"

	"github.com/cloudcentinel/principal-service/internal/domain"
	"github.com/cloudcentinel/principal-service/internal/repository"
	"github.com/cloudcentinel/principal-service/pkg/email"
	"github.com/cloudcentinel/principal-service/pkg/events"
	"github.com/cloudcentinel/principal-service/pkg/idp"
	"github.com/cloudcentinel/principal-service/pkg/secrets"
	"github.com/google/uuid"
)

// RegistryService composes the lifecycle, credential and membership machinery
// into the per-variant principal operations. Every operation runs as one
// transaction: the principal row, its primary membership and any credential
// state commit together or not at all.
type RegistryService struct {
	principalRepo  repository.PrincipalRepository
	membershipRepo repository.MembershipRepository
	tenants        repository.TenantDirectory
	tx             repository.TxManager
	idpClient      idp.Client
	publisher      events.Publisher
	emailService   email.EmailService
	generator      *secrets.Generator
	rotationWindow time.Duration
	now            Clock
}

func NewRegistryService(
	principalRepo repository.PrincipalRepository,
	membershipRepo repository.MembershipRepository,
	tenants repository.TenantDirectory,
	tx repository.TxManager,
	idpClient idp.Client,
	publisher events.Publisher,
	emailService email.EmailService,
	generator *secrets.Generator,
	rotationWindow time.Duration,
	now Clock,
) *RegistryService {
	if generator == nil {
		generator = secrets.NewGenerator(nil)
	}
	if rotationWindow <= 0 {
		rotationWindow = 90 * 24 * time.Hour
	}
	return &RegistryService{
		principalRepo:  principalRepo,
		membershipRepo: membershipRepo,
		tenants:        tenants,
		tx:             tx,
		idpClient:      idpClient,
		publisher:      publisher,
		emailService:   emailService,
		generator:      generator,
		rotationWindow: rotationWindow,
		now:            defaultClock(now),
	}
}

type CreateHumanRequest struct {
	Username        string
	Email           string
	DisplayName     string
	PhoneNumber     *string
	Locale          *string
	Timezone        *string
	PrimaryTenantID uuid.UUID
	ContextTags     domain.ContextTags
	CreatedBy       string
}

// CreateHuman registers a human principal in PENDING status and sends the
// activation mail. IdP user provisioning is best-effort here: the account can
// be synced later, unlike machine clients whose secret only exists in the IdP.
func (s *RegistryService) CreateHuman(ctx context.Context, req CreateHumanRequest) (*domain.Principal, error) {
	if req.Email == "" {
		return nil, domain.NewValidationError("email is required for human principals")
	}
	if err := req.ContextTags.ValidateSize(); err != nil {
		return nil, err
	}

	var created *domain.Principal

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p := domain.NewHumanPrincipal(req.Username, req.Email, req.DisplayName, req.PrimaryTenantID, req.CreatedBy, s.now())
		p.ContextTags = req.ContextTags
		p.Human.PhoneNumber = req.PhoneNumber
		p.Human.Locale = req.Locale
		p.Human.Timezone = req.Timezone

		if err := s.checkTenant(ctx, req.PrimaryTenantID); err != nil {
			return err
		}
		if err := s.checkUsernameFree(ctx, p.Username); err != nil {
			return err
		}

		// An INACTIVE principal owning the email is surfaced with its id so
		// the caller can offer reactivation instead of a blind conflict.
		inactive, err := s.principalRepo.FindInactiveByEmail(ctx, *p.Email)
		if err != nil {
			return err
		}
		if inactive != nil {
			return domain.NewInactivePrincipalFound(inactive.ID)
		}

		emailTaken, err := s.principalRepo.ExistsByEmail(ctx, *p.Email)
		if err != nil {
			return err
		}
		if emailTaken {
			return domain.ErrEmailAlreadyExists
		}

		s.provisionIdPUser(ctx, p)

		if err := s.principalRepo.Create(ctx, p); err != nil {
			return err
		}

		if err := s.createPrimaryMembership(ctx, p); err != nil {
			return err
		}

		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, domain.NewEvent(domain.EventPrincipalCreated, created, s.now(), map[string]string{
		"created_by": created.CreatedBy,
	}))

	s.sendVerificationEmail(created)

	return created, nil
}

type CreateServiceRequest struct {
	ServiceName     string
	AllowedScopes   []string
	PrimaryTenantID uuid.UUID
	ContextTags     domain.ContextTags
	CreatedBy       string
}

// CreateServiceResult carries the plaintext credentials exactly once.
type CreateServiceResult struct {
	Principal       *domain.Principal
	APIKey          string
	IdPClientSecret string
}

// CreateService registers a service principal. The IdP client provisioning is
// mandatory: without a client there is no credential, so an IdP failure
// aborts the whole creation.
func (s *RegistryService) CreateService(ctx context.Context, req CreateServiceRequest) (*CreateServiceResult, error) {
	if req.ServiceName == "" {
		return nil, domain.NewValidationError("service name is required")
	}
	if err := req.ContextTags.ValidateSize(); err != nil {
		return nil, err
	}

	result := &CreateServiceResult{}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		username := "svc-" + slugify(req.ServiceName)
		p := domain.NewServicePrincipal(username, req.ServiceName, req.AllowedScopes, req.PrimaryTenantID, req.CreatedBy, s.now())
		p.ContextTags = req.ContextTags

		if err := s.checkTenant(ctx, req.PrimaryTenantID); err != nil {
			return err
		}
		if err := s.checkUsernameFree(ctx, p.Username); err != nil {
			return err
		}

		taken, err := s.principalRepo.ExistsByServiceName(ctx, req.ServiceName)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrServiceNameAlreadyExists
		}

		apiKey, err := s.generator.GenerateAPIKey()
		if err != nil {
			return err
		}
		p.Service.APIKeyHash = secrets.HashSecret(apiKey)
		p.Service.CredentialRotationDate = s.now().Add(s.rotationWindow)

		secret, err := s.provisionIdPClient(ctx, p, p.Username, req.AllowedScopes)
		if err != nil {
			return err
		}

		if err := s.principalRepo.Create(ctx, p); err != nil {
			return err
		}
		if err := s.createPrimaryMembership(ctx, p); err != nil {
			return err
		}

		result.Principal = p
		result.APIKey = apiKey
		result.IdPClientSecret = secret
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, domain.NewEvent(domain.EventServicePrincipalCreated, result.Principal, s.now(), map[string]string{
		"service_name": req.ServiceName,
	}))

	return result, nil
}

type CreateSystemRequest struct {
	SystemIdentifier      string
	IntegrationType       string
	CertificateThumbprint string
	AllowedOperations     []string
	PrimaryTenantID       uuid.UUID
	ContextTags           domain.ContextTags
	CreatedBy             string
}

type CreateSystemResult struct {
	Principal       *domain.Principal
	IdPClientSecret string
}

// CreateSystem registers a system principal for an external integration.
func (s *RegistryService) CreateSystem(ctx context.Context, req CreateSystemRequest) (*CreateSystemResult, error) {
	if req.SystemIdentifier == "" {
		return nil, domain.NewValidationError("system identifier is required")
	}
	if req.CertificateThumbprint == "" {
		return nil, domain.NewValidationError("certificate thumbprint is required for system principals")
	}
	if err := req.ContextTags.ValidateSize(); err != nil {
		return nil, err
	}

	result := &CreateSystemResult{}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		username := "sys-" + slugify(req.SystemIdentifier)
		p := domain.NewSystemPrincipal(username, req.SystemIdentifier, req.IntegrationType, req.CertificateThumbprint, req.AllowedOperations, req.PrimaryTenantID, req.CreatedBy, s.now())
		p.ContextTags = req.ContextTags

		if err := s.checkTenant(ctx, req.PrimaryTenantID); err != nil {
			return err
		}
		if err := s.checkUsernameFree(ctx, p.Username); err != nil {
			return err
		}

		taken, err := s.principalRepo.ExistsBySystemIdentifier(ctx, req.SystemIdentifier)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrSystemIdentifierAlreadyExists
		}

		secret, err := s.provisionIdPClient(ctx, p, p.Username, req.AllowedOperations)
		if err != nil {
			return err
		}

		if err := s.principalRepo.Create(ctx, p); err != nil {
			return err
		}
		if err := s.createPrimaryMembership(ctx, p); err != nil {
			return err
		}

		result.Principal = p
		result.IdPClientSecret = secret
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, domain.NewEvent(domain.EventSystemPrincipalCreated, result.Principal, s.now(), map[string]string{
		"system_identifier": req.SystemIdentifier,
		"integration_type":  req.IntegrationType,
	}))

	return result, nil
}

type CreateDeviceRequest struct {
	DeviceIdentifier      string
	DeviceType            string
	CertificateThumbprint string
	FirmwareVersion       *string
	LocationInfo          *string
	PrimaryTenantID       uuid.UUID
	ContextTags           domain.ContextTags
	CreatedBy             string
}

type CreateDeviceResult struct {
	Principal       *domain.Principal
	IdPClientSecret string
}

// CreateDevice registers a device principal.
func (s *RegistryService) CreateDevice(ctx context.Context, req CreateDeviceRequest) (*CreateDeviceResult, error) {
	if req.DeviceIdentifier == "" {
		return nil, domain.NewValidationError("device identifier is required")
	}
	if req.CertificateThumbprint == "" {
		return nil, domain.NewValidationError("certificate thumbprint is required for device principals")
	}
	if err := req.ContextTags.ValidateSize(); err != nil {
		return nil, err
	}

	result := &CreateDeviceResult{}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		username := "dev-" + slugify(req.DeviceIdentifier)
		p := domain.NewDevicePrincipal(username, req.DeviceIdentifier, req.DeviceType, req.CertificateThumbprint, req.PrimaryTenantID, req.CreatedBy, s.now())
		p.ContextTags = req.ContextTags
		p.Device.FirmwareVersion = req.FirmwareVersion
		p.Device.LocationInfo = req.LocationInfo

		if err := s.checkTenant(ctx, req.PrimaryTenantID); err != nil {
			return err
		}
		if err := s.checkUsernameFree(ctx, p.Username); err != nil {
			return err
		}

		taken, err := s.principalRepo.ExistsByDeviceIdentifier(ctx, req.DeviceIdentifier)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrDeviceIdentifierAlreadyExists
		}

		secret, err := s.provisionIdPClient(ctx, p, p.Username, nil)
		if err != nil {
			return err
		}

		if err := s.principalRepo.Create(ctx, p); err != nil {
			return err
		}
		if err := s.createPrimaryMembership(ctx, p); err != nil {
			return err
		}

		result.Principal = p
		result.IdPClientSecret = secret
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, domain.NewEvent(domain.EventDevicePrincipalCreated, result.Principal, s.now(), map[string]string{
		"device_identifier": req.DeviceIdentifier,
		"device_type":       req.DeviceType,
	}))

	return result, nil
}

type UpdateProfileRequest struct {
	DisplayName *string
	PhoneNumber *string
	Locale      *string
	Timezone    *string
	MFAEnabled  *bool
	ContextTags domain.ContextTags
}

// UpdateProfile updates human profile fields and, for any variant, the
// context tags.
func (s *RegistryService) UpdateProfile(ctx context.Context, principalID uuid.UUID, req UpdateProfileRequest) (*domain.Principal, error) {
	if req.ContextTags != nil {
		if err := req.ContextTags.ValidateSize(); err != nil {
			return nil, err
		}
	}

	var updated *domain.Principal

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.principalRepo.GetByID(ctx, principalID)
		if err != nil {
			return err
		}

		if p.Status == domain.PrincipalStatusDeleted {
			return domain.NewInvalidStateTransition(
				[]domain.PrincipalStatus{domain.PrincipalStatusPending, domain.PrincipalStatusActive, domain.PrincipalStatusSuspended, domain.PrincipalStatusInactive},
				p.Status,
			)
		}

		if p.Type == domain.PrincipalTypeHuman && p.Human != nil {
			if req.DisplayName != nil {
				p.Human.DisplayName = *req.DisplayName
			}
			if req.PhoneNumber != nil {
				p.Human.PhoneNumber = req.PhoneNumber
			}
			if req.Locale != nil {
				p.Human.Locale = req.Locale
			}
			if req.Timezone != nil {
				p.Human.Timezone = req.Timezone
			}
			if req.MFAEnabled != nil {
				p.Human.MFAEnabled = *req.MFAEnabled
			}
		}

		if req.ContextTags != nil {
			p.ContextTags = req.ContextTags
		}

		p.UpdatedAt = s.now()

		if err := s.principalRepo.Update(ctx, p); err != nil {
			return err
		}

		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, domain.NewEvent(domain.EventProfileUpdated, updated, s.now(), nil))

	return updated, nil
}

// RecordHeartbeat stamps a device principal's liveness signal.
func (s *RegistryService) RecordHeartbeat(ctx context.Context, principalID uuid.UUID, firmwareVersion, locationInfo *string) (*domain.Principal, error) {
	var updated *domain.Principal

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.principalRepo.GetByID(ctx, principalID)
		if err != nil {
			return err
		}

		if p.Type != domain.PrincipalTypeDevice || p.Device == nil {
			return domain.NewValidationError("heartbeat applies to device principals only")
		}

		now := s.now()
		p.Device.LastHeartbeatAt = &now
		if firmwareVersion != nil {
			p.Device.FirmwareVersion = firmwareVersion
		}
		if locationInfo != nil {
			p.Device.LocationInfo = locationInfo
		}
		p.UpdatedAt = now

		if err := s.principalRepo.Update(ctx, p); err != nil {
			return err
		}

		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, domain.NewEvent(domain.EventHeartbeatUpdated, updated, s.now(), nil))

	return updated, nil
}

// GetByID returns a principal.
func (s *RegistryService) GetByID(ctx context.Context, principalID uuid.UUID) (*domain.Principal, error) {
	return s.principalRepo.GetByID(ctx, principalID)
}

// List returns principals with pagination.
func (s *RegistryService) List(ctx context.Context, page, size int) ([]*domain.Principal, int, error) {
	if size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}
	return s.principalRepo.List(ctx, size, page*size)
}

func (s *RegistryService) checkTenant(ctx context.Context, tenantID uuid.UUID) error {
	exists, err := s.tenants.Exists(ctx, tenantID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrTenantNotFound
	}
	return nil
}

// checkUsernameFree is the advisory duplicate check; the unique constraint
// settles concurrent races.
func (s *RegistryService) checkUsernameFree(ctx context.Context, username string) error {
	taken, err := s.principalRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrUsernameAlreadyExists
	}
	return nil
}

// createPrimaryMembership records the principal's membership in its primary
// tenant. It lives and dies with the principal and is never removable.
func (s *RegistryService) createPrimaryMembership(ctx context.Context, p *domain.Principal) error {
	m := domain.NewTenantMembership(p.ID, p.PrimaryTenantID, time.Time{}, nil, nil, s.now())
	return s.membershipRepo.Create(ctx, m)
}

// provisionIdPUser creates the IdP mirror of a human principal, best-effort.
func (s *RegistryService) provisionIdPUser(ctx context.Context, p *domain.Principal) {
	if s.idpClient == nil {
		return
	}

	enabled := false
	attrs := idp.UserAttributes{Email: p.Email, Enabled: &enabled}
	if p.Human != nil {
		attrs.DisplayName = &p.Human.DisplayName
	}

	idpUserID, err := s.idpClient.CreateUser(ctx, p.Username, attrs)
	if err == nil && p.Human != nil {
		p.Human.IdPUserID = &idpUserID
	}
	markSyncOutcome(p, "create_user", err)
}

// provisionIdPClient creates the OAuth2 client for a machine principal. This
// call is mandatory: the client secret only exists in the IdP, so a failure
// aborts the creation.
func (s *RegistryService) provisionIdPClient(ctx context.Context, p *domain.Principal, clientID string, scopes []string) (string, error) {
	if s.idpClient == nil {
		return "", nil
	}

	secret, err := s.idpClient.CreateClient(ctx, clientID, scopes)
	if err != nil {
		return "", domain.NewExternalSyncError("create_client", err)
	}

	p.SyncStatus = domain.SyncStatusSynced
	switch p.Type {
	case domain.PrincipalTypeService:
		p.Service.IdPClientID = &clientID
	case domain.PrincipalTypeSystem:
		p.System.IdPClientID = &clientID
	case domain.PrincipalTypeDevice:
		p.Device.IdPClientID = &clientID
	}

	return secret, nil
}

// sendVerificationEmail mails the activation token, best-effort and async,
// matching the registration flow: a mail outage never fails creation.
func (s *RegistryService) sendVerificationEmail(p *domain.Principal) {
	if s.emailService == nil || p.Email == nil || p.Human == nil {
		return
	}

	token, err := s.generator.RandomSuffix(32)
	if err != nil {
		log.Printf("[REGISTRY] Failed to generate verification token for %s: %v", p.ID, err)
		return
	}

	to := *p.Email
	name := p.Human.DisplayName
	go func() {
		if err := s.emailService.SendVerificationEmail(context.Background(), to, name, token); err != nil {
			log.Printf("[REGISTRY] Failed to send verification email to %s: %v", to, err)
		}
	}()
}
