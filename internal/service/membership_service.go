package service

import (
	"context"
	"time"

	"github.com/cloudcentinel/principal-service/internal/domain"
	"github.com/cloudcentinel/principal-service/internal/repository"
	"github.com/google/uuid"
)

// MembershipService is the tenant membership ledger. Memberships are only
// ever expired, never deleted, so tenant access history remains auditable.
type MembershipService struct {
	principalRepo  repository.PrincipalRepository
	membershipRepo repository.MembershipRepository
	tenants        repository.TenantDirectory
	tx             repository.TxManager
	now            Clock
}

func NewMembershipService(
	principalRepo repository.PrincipalRepository,
	membershipRepo repository.MembershipRepository,
	tenants repository.TenantDirectory,
	tx repository.TxManager,
	now Clock,
) *MembershipService {
	return &MembershipService{
		principalRepo:  principalRepo,
		membershipRepo: membershipRepo,
		tenants:        tenants,
		tx:             tx,
		now:            defaultClock(now),
	}
}

// AddMembership grants an ACTIVE principal access to an existing tenant.
func (s *MembershipService) AddMembership(ctx context.Context, principalID, tenantID uuid.UUID, validFrom time.Time, validTo *time.Time, invitedBy *string) (*domain.TenantMembership, error) {
	var membership *domain.TenantMembership

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.principalRepo.GetByID(ctx, principalID)
		if err != nil {
			return err
		}

		if p.Status != domain.PrincipalStatusActive {
			return domain.NewInvalidStateTransition([]domain.PrincipalStatus{domain.PrincipalStatusActive}, p.Status)
		}

		exists, err := s.tenants.Exists(ctx, tenantID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrTenantNotFound
		}

		existing, err := s.membershipRepo.FindByPrincipalIDAndTenantIDAndStatus(ctx, principalID, tenantID, domain.MembershipStatusActive)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrMembershipAlreadyExists
		}

		membership = domain.NewTenantMembership(principalID, tenantID, validFrom, validTo, invitedBy, s.now())
		return s.membershipRepo.Create(ctx, membership)
	})
	if err != nil {
		return nil, err
	}

	return membership, nil
}

// RemoveMembership expires the ACTIVE membership for the tenant. The primary
// tenant membership is untouchable while the principal exists.
func (s *MembershipService) RemoveMembership(ctx context.Context, principalID, tenantID uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.principalRepo.GetByID(ctx, principalID)
		if err != nil {
			return err
		}

		if tenantID == p.PrimaryTenantID {
			return domain.ErrCannotRemovePrimaryTenant
		}

		membership, err := s.membershipRepo.FindByPrincipalIDAndTenantIDAndStatus(ctx, principalID, tenantID, domain.MembershipStatusActive)
		if err != nil {
			return err
		}
		if membership == nil {
			return domain.ErrMembershipNotFound
		}

		now := s.now()
		membership.Status = domain.MembershipStatusExpired
		membership.ValidTo = &now
		membership.UpdatedAt = now

		return s.membershipRepo.Update(ctx, membership)
	})
}

// ListMemberships returns the principal's memberships in creation order,
// annotated with the primary-tenant flag.
func (s *MembershipService) ListMemberships(ctx context.Context, principalID uuid.UUID, page, size int) ([]*domain.MembershipView, int, error) {
	p, err := s.principalRepo.GetByID(ctx, principalID)
	if err != nil {
		return nil, 0, err
	}

	if size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}

	memberships, total, err := s.membershipRepo.FindByPrincipalID(ctx, principalID, size, page*size)
	if err != nil {
		return nil, 0, err
	}

	views := make([]*domain.MembershipView, len(memberships))
	for i, m := range memberships {
		views[i] = &domain.MembershipView{
			TenantMembership: *m,
			IsPrimary:        m.TenantID == p.PrimaryTenantID,
		}
	}

	return views, total, nil
}
