package postgres

import (
	"errors"
	"strings"

	"github.com/cloudcentinel/principal-service/internal/domain"
	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

// translateUniqueViolation maps a constraint violation to the AlreadyExists
// error family. Advisory pre-checks in the services catch most duplicates;
// the constraint is the actual race-safety mechanism, so the losing side of a
// concurrent insert lands here.
func translateUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}

	switch {
	case strings.Contains(pqErr.Constraint, "username"):
		return domain.ErrUsernameAlreadyExists
	case strings.Contains(pqErr.Constraint, "email"):
		return domain.ErrEmailAlreadyExists
	case strings.Contains(pqErr.Constraint, "service_name"):
		return domain.ErrServiceNameAlreadyExists
	case strings.Contains(pqErr.Constraint, "system_identifier"):
		return domain.ErrSystemIdentifierAlreadyExists
	case strings.Contains(pqErr.Constraint, "device_identifier"):
		return domain.ErrDeviceIdentifierAlreadyExists
	case strings.Contains(pqErr.Constraint, "membership"):
		return domain.ErrMembershipAlreadyExists
	}

	return err
}
