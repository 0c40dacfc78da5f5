package postgres

import (
	"context"
	"fmt"

	"github.com/cloudcentinel/principal-service/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type tenantDirectory struct {
	db *sqlx.DB
}

// NewTenantDirectory creates a tenant-existence checker backed by the shared
// tenants table.
func NewTenantDirectory(db *sqlx.DB) repository.TenantDirectory {
	return &tenantDirectory{db: db}
}

func (r *tenantDirectory) Exists(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM tenants WHERE id = $1)`

	var found bool
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &found, query, tenantID); err != nil {
		return false, fmt.Errorf("failed to check tenant existence: %w", err)
	}

	return found, nil
}
