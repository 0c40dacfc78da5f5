package repository

import (
	"context"

	"github.com/cloudcentinel/principal-service/internal/domain"
	"github.com/google/uuid"
)

type PrincipalRepository interface {
	Create(ctx context.Context, p *domain.Principal) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Principal, error)
	Update(ctx context.Context, p *domain.Principal) error
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByServiceName(ctx context.Context, serviceName string) (bool, error)
	ExistsBySystemIdentifier(ctx context.Context, systemIdentifier string) (bool, error)
	ExistsByDeviceIdentifier(ctx context.Context, deviceIdentifier string) (bool, error)
	// FindInactiveByEmail supports the reactivation-conflict check during
	// human creation: an INACTIVE principal owning the requested email is
	// surfaced instead of a blind conflict.
	FindInactiveByEmail(ctx context.Context, email string) (*domain.Principal, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Principal, int, error)
}
