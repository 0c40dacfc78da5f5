package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cloudcentinel/principal-service/internal/domain"
	"github.com/cloudcentinel/principal-service/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type membershipRepository struct {
	db *sqlx.DB
}

// NewMembershipRepository creates a new PostgreSQL membership repository
func NewMembershipRepository(db *sqlx.DB) repository.MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) Create(ctx context.Context, m *domain.TenantMembership) error {
	query := `
		INSERT INTO tenant_memberships (
			id, principal_id, tenant_id, valid_from, valid_to, status, invited_by,
			created_at, updated_at
		) VALUES (
			:id, :principal_id, :tenant_id, :valid_from, :valid_to, :status, :invited_by,
			:created_at, :updated_at
		)`

	_, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db), query, m)
	if err != nil {
		return translateUniqueViolation(err)
	}

	return nil
}

func (r *membershipRepository) Update(ctx context.Context, m *domain.TenantMembership) error {
	query := `
		UPDATE tenant_memberships
		SET valid_to = :valid_to,
			status = :status,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db), query, m)
	if err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return domain.ErrMembershipNotFound
	}

	return nil
}

func (r *membershipRepository) FindByPrincipalID(ctx context.Context, principalID uuid.UUID, limit, offset int) ([]*domain.TenantMembership, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM tenant_memberships WHERE principal_id = $1`
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &total, countQuery, principalID); err != nil {
		return nil, 0, fmt.Errorf("failed to count memberships: %w", err)
	}

	query := `
		SELECT id, principal_id, tenant_id, valid_from, valid_to, status, invited_by,
			   created_at, updated_at
		FROM tenant_memberships
		WHERE principal_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`

	var memberships []*domain.TenantMembership
	if err := sqlx.SelectContext(ctx, ext(ctx, r.db), &memberships, query, principalID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list memberships: %w", err)
	}

	return memberships, total, nil
}

func (r *membershipRepository) FindByPrincipalIDAndTenantIDAndStatus(ctx context.Context, principalID, tenantID uuid.UUID, status domain.MembershipStatus) (*domain.TenantMembership, error) {
	query := `
		SELECT id, principal_id, tenant_id, valid_from, valid_to, status, invited_by,
			   created_at, updated_at
		FROM tenant_memberships
		WHERE principal_id = $1 AND tenant_id = $2 AND status = $3`

	var membership domain.TenantMembership
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &membership, query, principalID, tenantID, status)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find membership: %w", err)
	}

	return &membership, nil
}

func (r *membershipRepository) UpdateStatusByPrincipalID(ctx context.Context, principalID uuid.UUID, from, to domain.MembershipStatus) (int, error) {
	query := `
		UPDATE tenant_memberships
		SET status = $1, updated_at = NOW()
		WHERE principal_id = $2 AND status = $3`

	result, err := ext(ctx, r.db).ExecContext(ctx, query, to, principalID, from)
	if err != nil {
		return 0, fmt.Errorf("failed to cascade membership status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}
