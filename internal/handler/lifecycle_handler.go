package handler

import (
	"time"

	"github.com/cloudcentinel/principal-service/internal/service"
	"github.com/cloudcentinel/principal-service/pkg/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type LifecycleHandler struct {
	lifecycle   *service.LifecycleService
	credentials *service.CredentialService
	deletion    *service.DeletionService
	validator   *validator.Validator
}

func NewLifecycleHandler(
	lifecycle *service.LifecycleService,
	credentials *service.CredentialService,
	deletion *service.DeletionService,
	validator *validator.Validator,
) *LifecycleHandler {
	return &LifecycleHandler{
		lifecycle:   lifecycle,
		credentials: credentials,
		deletion:    deletion,
		validator:   validator,
	}
}

// ActivateRequest represents the request body for activation
type ActivateRequest struct {
	VerificationToken string `json:"verification_token" validate:"omitempty,max=512"`
	AdminOverride     bool   `json:"admin_override"`
	Reason            string `json:"reason" validate:"omitempty,max=500"`
}

// Activate transitions a principal to ACTIVE
// POST /api/v1/principals/:id/activate
func (h *LifecycleHandler) Activate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid principal id")
	}

	var req ActivateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.lifecycle.Activate(c.Context(), id, service.ActivateRequest{
		VerificationToken: req.VerificationToken,
		AdminOverride:     req.AdminOverride,
		Reason:            req.Reason,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"principal":         result.Principal,
		"activated_by":      result.ActivatedBy,
		"activation_method": result.ActivationMethod,
	})
}

// SuspendRequest represents the request body for suspension
type SuspendRequest struct {
	Reason         string  `json:"reason" validate:"required,min=1,max=500"`
	IncidentTicket *string `json:"incident_ticket" validate:"omitempty,max=100"`
}

// Suspend transitions a principal to SUSPENDED
// POST /api/v1/principals/:id/suspend
func (h *LifecycleHandler) Suspend(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid principal id")
	}

	var req SuspendRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	principal, err := h.lifecycle.Suspend(c.Context(), id, req.Reason, req.IncidentTicket)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(principal)
}

// DeactivateRequest represents the request body for deactivation
type DeactivateRequest struct {
	Reason        string  `json:"reason" validate:"required,min=1,max=500"`
	EffectiveDate *string `json:"effective_date" validate:"omitempty,datetime=2006-01-02"`
}

// Deactivate transitions a principal to INACTIVE
// POST /api/v1/principals/:id/deactivate
func (h *LifecycleHandler) Deactivate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid principal id")
	}

	var req DeactivateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	var effective *time.Time
	if req.EffectiveDate != nil {
		t, err := time.Parse("2006-01-02", *req.EffectiveDate)
		if err != nil {
			return badRequest(c, "Invalid effective_date")
		}
		effective = &t
	}

	principal, err := h.lifecycle.Deactivate(c.Context(), id, req.Reason, effective)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(principal)
}

// RotateRequest represents the request body for credential rotation
type RotateRequest struct {
	Force bool `json:"force"`
}

// RotateCredentials rotates a machine principal's credentials
// POST /api/v1/principals/:id/credentials/rotate
func (h *LifecycleHandler) RotateCredentials(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid principal id")
	}

	var req RotateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	result, err := h.credentials.Rotate(c.Context(), id, req.Force)
	if err != nil {
		return errorResponse(c, err)
	}

	body := fiber.Map{
		"principal_id": result.PrincipalID,
		"rotated_at":   result.RotatedAt,
	}
	if result.APIKey != "" {
		body["api_key"] = result.APIKey
		body["credential_rotation_date"] = result.CredentialRotationDate
	}
	if result.IdPClientSecret != "" {
		body["idp_client_secret"] = result.IdPClientSecret
	}

	return c.JSON(body)
}

// DeleteRequest represents the request body for GDPR deletion
type DeleteRequest struct {
	Confirmation   string `json:"confirmation" validate:"required"`
	GDPRTicket     string `json:"gdpr_ticket" validate:"omitempty,max=100"`
	RequestorEmail string `json:"requestor_email" validate:"omitempty,email"`
}

// Delete anonymizes an INACTIVE principal after the retention period
// DELETE /api/v1/principals/:id
func (h *LifecycleHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid principal id")
	}

	var req DeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.deletion.Delete(c.Context(), id, service.DeletionRequest{
		Confirmation:   req.Confirmation,
		GDPRTicket:     req.GDPRTicket,
		RequestorEmail: req.RequestorEmail,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"audit_reference": result.AuditReference,
		"deleted_at":      result.DeletedAt,
	})
}
