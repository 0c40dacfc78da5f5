package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrorKind groups domain errors into the categories upstream layers branch
// on. Handlers map kinds to transport status codes; callers never match on
// message text.
type ErrorKind string

const (
	KindConflict     ErrorKind = "conflict"
	KindNotFound     ErrorKind = "not_found"
	KindInvalidState ErrorKind = "invalid_state"
	KindValidation   ErrorKind = "validation"
	KindExternalSync ErrorKind = "external_sync"
	KindSpecialCase  ErrorKind = "special_case"
)

// Error is the domain error type. Two Errors are "the same" for errors.Is
// when their Codes match, so the package-level sentinels below double as
// match targets for detail-carrying instances.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details map[string]string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

var (
	ErrUsernameAlreadyExists         = &Error{Kind: KindConflict, Code: "USERNAME_ALREADY_EXISTS", Message: "username already exists"}
	ErrEmailAlreadyExists            = &Error{Kind: KindConflict, Code: "EMAIL_ALREADY_EXISTS", Message: "email already exists"}
	ErrServiceNameAlreadyExists      = &Error{Kind: KindConflict, Code: "SERVICE_NAME_ALREADY_EXISTS", Message: "service name already exists"}
	ErrSystemIdentifierAlreadyExists = &Error{Kind: KindConflict, Code: "SYSTEM_IDENTIFIER_ALREADY_EXISTS", Message: "system identifier already exists"}
	ErrDeviceIdentifierAlreadyExists = &Error{Kind: KindConflict, Code: "DEVICE_IDENTIFIER_ALREADY_EXISTS", Message: "device identifier already exists"}
	ErrMembershipAlreadyExists       = &Error{Kind: KindConflict, Code: "MEMBERSHIP_ALREADY_EXISTS", Message: "active membership already exists for this tenant"}

	ErrPrincipalNotFound  = &Error{Kind: KindNotFound, Code: "PRINCIPAL_NOT_FOUND", Message: "principal not found"}
	ErrTenantNotFound     = &Error{Kind: KindNotFound, Code: "TENANT_NOT_FOUND", Message: "tenant not found"}
	ErrMembershipNotFound = &Error{Kind: KindNotFound, Code: "MEMBERSHIP_NOT_FOUND", Message: "active membership not found"}

	ErrInvalidStateTransition    = &Error{Kind: KindInvalidState, Code: "INVALID_STATE_TRANSITION", Message: "invalid state transition"}
	ErrRotationNotDue            = &Error{Kind: KindInvalidState, Code: "ROTATION_NOT_DUE", Message: "credential rotation is not due"}
	ErrInvalidStateForDeletion   = &Error{Kind: KindInvalidState, Code: "INVALID_STATE_FOR_DELETION", Message: "principal must be inactive before deletion"}
	ErrRetentionPeriodNotMet     = &Error{Kind: KindInvalidState, Code: "RETENTION_PERIOD_NOT_MET", Message: "retention period not met"}
	ErrCannotRemovePrimaryTenant = &Error{Kind: KindInvalidState, Code: "CANNOT_REMOVE_PRIMARY_TENANT", Message: "primary tenant membership cannot be removed"}

	ErrValidation = &Error{Kind: KindValidation, Code: "VALIDATION_FAILED", Message: "validation failed"}

	ErrExternalSyncFailed = &Error{Kind: KindExternalSync, Code: "EXTERNAL_SYNC_FAILED", Message: "identity provider synchronization failed"}

	ErrInactivePrincipalFound = &Error{Kind: KindSpecialCase, Code: "INACTIVE_PRINCIPAL_FOUND", Message: "an inactive principal already owns this email"}
)

// NewInvalidStateTransition reports an illegal lifecycle transition, naming
// the statuses the operation requires and the status actually found.
func NewInvalidStateTransition(required []PrincipalStatus, actual PrincipalStatus) *Error {
	names := make([]string, len(required))
	for i, s := range required {
		names[i] = string(s)
	}
	return &Error{
		Kind:    KindInvalidState,
		Code:    ErrInvalidStateTransition.Code,
		Message: fmt.Sprintf("transition requires status %s, principal is %s", strings.Join(names, " or "), actual),
		Details: map[string]string{
			"required_status": strings.Join(names, ","),
			"actual_status":   string(actual),
		},
	}
}

// NewRetentionPeriodNotMet reports a premature GDPR deletion attempt.
func NewRetentionPeriodNotMet(daysRemaining int) *Error {
	return &Error{
		Kind:    KindInvalidState,
		Code:    ErrRetentionPeriodNotMet.Code,
		Message: fmt.Sprintf("retention period not met: %d days remaining", daysRemaining),
		Details: map[string]string{"days_remaining": fmt.Sprintf("%d", daysRemaining)},
	}
}

// NewInactivePrincipalFound surfaces the id of an existing INACTIVE principal
// so the caller can offer reactivation instead of failing creation outright.
func NewInactivePrincipalFound(existingID uuid.UUID) *Error {
	return &Error{
		Kind:    KindSpecialCase,
		Code:    ErrInactivePrincipalFound.Code,
		Message: "an inactive principal already owns this email",
		Details: map[string]string{"existing_principal_id": existingID.String()},
	}
}

// NewValidationError wraps a field-level validation failure.
func NewValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Code: ErrValidation.Code, Message: msg}
}

// NewExternalSyncError wraps an IdP failure that is fatal for the operation.
func NewExternalSyncError(operation string, cause error) *Error {
	return &Error{
		Kind:    KindExternalSync,
		Code:    ErrExternalSyncFailed.Code,
		Message: fmt.Sprintf("identity provider call %s failed: %v", operation, cause),
		Details: map[string]string{"operation": operation},
	}
}

// KindOf extracts the ErrorKind from err, or "" for non-domain errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
