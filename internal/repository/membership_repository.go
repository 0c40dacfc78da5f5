package repository

import (
	"context"

	"github.com/cloudcentinel/principal-service/internal/domain"
	"github.com/google/uuid"
)

type MembershipRepository interface {
	Create(ctx context.Context, m *domain.TenantMembership) error
	Update(ctx context.Context, m *domain.TenantMembership) error
	FindByPrincipalID(ctx context.Context, principalID uuid.UUID, limit, offset int) ([]*domain.TenantMembership, int, error)
	FindByPrincipalIDAndTenantIDAndStatus(ctx context.Context, principalID, tenantID uuid.UUID, status domain.MembershipStatus) (*domain.TenantMembership, error)
	// UpdateStatusByPrincipalID moves every membership of the principal that
	// currently has status from to status to, returning the number changed.
	UpdateStatusByPrincipalID(ctx context.Context, principalID uuid.UUID, from, to domain.MembershipStatus) (int, error)
}
