package handler

import (
	"net/http"
	"time"

	"github.com/cloudcentinel/principal-service/internal/service"
	"github.com/cloudcentinel/principal-service/pkg/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type MembershipHandler struct {
	memberships *service.MembershipService
	validator   *validator.Validator
}

func NewMembershipHandler(memberships *service.MembershipService, validator *validator.Validator) *MembershipHandler {
	return &MembershipHandler{
		memberships: memberships,
		validator:   validator,
	}
}

// AddMembershipRequest represents the request body for granting tenant access
type AddMembershipRequest struct {
	TenantID  string  `json:"tenant_id" validate:"required,uuid"`
	ValidFrom *string `json:"valid_from" validate:"omitempty"`
	ValidTo   *string `json:"valid_to" validate:"omitempty"`
	InvitedBy *string `json:"invited_by" validate:"omitempty,max=255"`
}

// AddMembership grants a principal access to a tenant
// POST /api/v1/principals/:id/memberships
func (h *MembershipHandler) AddMembership(c *fiber.Ctx) error {
	principalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid principal id")
	}

	var req AddMembershipRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		return badRequest(c, "Invalid tenant_id")
	}

	var validFrom time.Time
	if req.ValidFrom != nil {
		validFrom, err = time.Parse(time.RFC3339, *req.ValidFrom)
		if err != nil {
			return badRequest(c, "Invalid valid_from")
		}
	}

	var validTo *time.Time
	if req.ValidTo != nil {
		t, err := time.Parse(time.RFC3339, *req.ValidTo)
		if err != nil {
			return badRequest(c, "Invalid valid_to")
		}
		validTo = &t
	}

	membership, err := h.memberships.AddMembership(c.Context(), principalID, tenantID, validFrom, validTo, req.InvitedBy)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(http.StatusCreated).JSON(membership)
}

// RemoveMembership expires a principal's membership in a tenant
// DELETE /api/v1/principals/:id/memberships/:tenantId
func (h *MembershipHandler) RemoveMembership(c *fiber.Ctx) error {
	principalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid principal id")
	}

	tenantID, err := uuid.Parse(c.Params("tenantId"))
	if err != nil {
		return badRequest(c, "Invalid tenant id")
	}

	if err := h.memberships.RemoveMembership(c.Context(), principalID, tenantID); err != nil {
		return errorResponse(c, err)
	}

	return c.SendStatus(http.StatusNoContent)
}

// ListMemberships lists a principal's memberships
// GET /api/v1/principals/:id/memberships?page=0&size=20
func (h *MembershipHandler) ListMemberships(c *fiber.Ctx) error {
	principalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid principal id")
	}

	page := c.QueryInt("page", 0)
	size := c.QueryInt("size", 20)

	memberships, total, err := h.memberships.ListMemberships(c.Context(), principalID, page, size)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"memberships": memberships,
		"total":       total,
		"page":        page,
		"size":        size,
	})
}
