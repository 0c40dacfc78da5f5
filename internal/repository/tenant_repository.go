package repository

import (
	"context"

	"github.com/google/uuid"
)

// TenantDirectory answers tenant-existence checks. Tenant provisioning itself
// is owned by another system; the ledger only needs to know a tenant is real.
type TenantDirectory interface {
	Exists(ctx context.Context, tenantID uuid.UUID) (bool, error)
}
