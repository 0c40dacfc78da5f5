package handler

import (
	"net/http"

	"github.com/cloudcentinel/principal-service/internal/domain"
	"github.com/cloudcentinel/principal-service/internal/service"
	"github.com/cloudcentinel/principal-service/pkg/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type PrincipalHandler struct {
	registry  *service.RegistryService
	validator *validator.Validator
}

func NewPrincipalHandler(registry *service.RegistryService, validator *validator.Validator) *PrincipalHandler {
	return &PrincipalHandler{
		registry:  registry,
		validator: validator,
	}
}

// CreateHumanRequest represents the request body for creating a human principal
type CreateHumanRequest struct {
	Username        string            `json:"username" validate:"required,min=3,max=100"`
	Email           string            `json:"email" validate:"required,email"`
	DisplayName     string            `json:"display_name" validate:"required,min=1,max=255"`
	PhoneNumber     *string           `json:"phone_number" validate:"omitempty,max=32"`
	Locale          *string           `json:"locale" validate:"omitempty,max=16"`
	Timezone        *string           `json:"timezone" validate:"omitempty,max=64"`
	PrimaryTenantID string            `json:"primary_tenant_id" validate:"required,uuid"`
	ContextTags     map[string]string `json:"context_tags"`
	CreatedBy       string            `json:"created_by" validate:"omitempty,max=255"`
}

// CreateHuman creates a human principal
// POST /api/v1/principals/humans
func (h *PrincipalHandler) CreateHuman(c *fiber.Ctx) error {
	var req CreateHumanRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	tenantID, err := uuid.Parse(req.PrimaryTenantID)
	if err != nil {
		return badRequest(c, "Invalid primary_tenant_id")
	}

	principal, err := h.registry.CreateHuman(c.Context(), service.CreateHumanRequest{
		Username:        req.Username,
		Email:           req.Email,
		DisplayName:     req.DisplayName,
		PhoneNumber:     req.PhoneNumber,
		Locale:          req.Locale,
		Timezone:        req.Timezone,
		PrimaryTenantID: tenantID,
		ContextTags:     domain.ContextTags(req.ContextTags),
		CreatedBy:       req.CreatedBy,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(http.StatusCreated).JSON(principal)
}

// CreateServiceRequest represents the request body for creating a service principal
type CreateServiceRequest struct {
	ServiceName     string            `json:"service_name" validate:"required,min=2,max=255"`
	AllowedScopes   []string          `json:"allowed_scopes" validate:"omitempty,dive,min=1,max=100"`
	PrimaryTenantID string            `json:"primary_tenant_id" validate:"required,uuid"`
	ContextTags     map[string]string `json:"context_tags"`
	CreatedBy       string            `json:"created_by" validate:"omitempty,max=255"`
}

// CreateService creates a service principal and returns its API key once
// POST /api/v1/principals/services
func (h *PrincipalHandler) CreateService(c *fiber.Ctx) error {
	var req CreateServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	tenantID, err := uuid.Parse(req.PrimaryTenantID)
	if err != nil {
		return badRequest(c, "Invalid primary_tenant_id")
	}

	result, err := h.registry.CreateService(c.Context(), service.CreateServiceRequest{
		ServiceName:     req.ServiceName,
		AllowedScopes:   req.AllowedScopes,
		PrimaryTenantID: tenantID,
		ContextTags:     domain.ContextTags(req.ContextTags),
		CreatedBy:       req.CreatedBy,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	// The plaintext credentials appear in this response and nowhere else.
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"principal":         result.Principal,
		"api_key":           result.APIKey,
		"idp_client_secret": result.IdPClientSecret,
	})
}

// CreateSystemRequest represents the request body for creating a system principal
type CreateSystemRequest struct {
	SystemIdentifier      string            `json:"system_identifier" validate:"required,min=2,max=255"`
	IntegrationType       string            `json:"integration_type" validate:"required,min=2,max=100"`
	CertificateThumbprint string            `json:"certificate_thumbprint" validate:"required,min=8,max=255"`
	AllowedOperations     []string          `json:"allowed_operations" validate:"omitempty,dive,min=1,max=100"`
	PrimaryTenantID       string            `json:"primary_tenant_id" validate:"required,uuid"`
	ContextTags           map[string]string `json:"context_tags"`
	CreatedBy             string            `json:"created_by" validate:"omitempty,max=255"`
}

// CreateSystem creates a system principal
// POST /api/v1/principals/systems
func (h *PrincipalHandler) CreateSystem(c *fiber.Ctx) error {
	var req CreateSystemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	tenantID, err := uuid.Parse(req.PrimaryTenantID)
	if err != nil {
		return badRequest(c, "Invalid primary_tenant_id")
	}

	result, err := h.registry.CreateSystem(c.Context(), service.CreateSystemRequest{
		SystemIdentifier:      req.SystemIdentifier,
		IntegrationType:       req.IntegrationType,
		CertificateThumbprint: req.CertificateThumbprint,
		AllowedOperations:     req.AllowedOperations,
		PrimaryTenantID:       tenantID,
		ContextTags:           domain.ContextTags(req.ContextTags),
		CreatedBy:             req.CreatedBy,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"principal":         result.Principal,
		"idp_client_secret": result.IdPClientSecret,
	})
}

// CreateDeviceRequest represents the request body for creating a device principal
type CreateDeviceRequest struct {
	DeviceIdentifier      string            `json:"device_identifier" validate:"required,min=2,max=255"`
	DeviceType            string            `json:"device_type" validate:"required,min=2,max=100"`
	CertificateThumbprint string            `json:"certificate_thumbprint" validate:"required,min=8,max=255"`
	FirmwareVersion       *string           `json:"firmware_version" validate:"omitempty,max=64"`
	LocationInfo          *string           `json:"location_info" validate:"omitempty,max=255"`
	PrimaryTenantID       string            `json:"primary_tenant_id" validate:"required,uuid"`
	ContextTags           map[string]string `json:"context_tags"`
	CreatedBy             string            `json:"created_by" validate:"omitempty,max=255"`
}

// CreateDevice creates a device principal
// POST /api/v1/principals/devices
func (h *PrincipalHandler) CreateDevice(c *fiber.Ctx) error {
	var req CreateDeviceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	tenantID, err := uuid.Parse(req.PrimaryTenantID)
	if err != nil {
		return badRequest(c, "Invalid primary_tenant_id")
	}

	result, err := h.registry.CreateDevice(c.Context(), service.CreateDeviceRequest{
		DeviceIdentifier:      req.DeviceIdentifier,
		DeviceType:            req.DeviceType,
		CertificateThumbprint: req.CertificateThumbprint,
		FirmwareVersion:       req.FirmwareVersion,
		LocationInfo:          req.LocationInfo,
		PrimaryTenantID:       tenantID,
		ContextTags:           domain.ContextTags(req.ContextTags),
		CreatedBy:             req.CreatedBy,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"principal":         result.Principal,
		"idp_client_secret": result.IdPClientSecret,
	})
}

// GetPrincipal retrieves a principal by id
// GET /api/v1/principals/:id
func (h *PrincipalHandler) GetPrincipal(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid principal id")
	}

	principal, err := h.registry.GetByID(c.Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(principal)
}

// ListPrincipals lists principals with pagination
// GET /api/v1/principals?page=0&size=20
func (h *PrincipalHandler) ListPrincipals(c *fiber.Ctx) error {
	page := c.QueryInt("page", 0)
	size := c.QueryInt("size", 20)

	principals, total, err := h.registry.List(c.Context(), page, size)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"principals": principals,
		"total":      total,
		"page":       page,
		"size":       size,
	})
}

// UpdateProfileRequest represents the request body for profile updates
type UpdateProfileRequest struct {
	DisplayName *string           `json:"display_name" validate:"omitempty,min=1,max=255"`
	PhoneNumber *string           `json:"phone_number" validate:"omitempty,max=32"`
	Locale      *string           `json:"locale" validate:"omitempty,max=16"`
	Timezone    *string           `json:"timezone" validate:"omitempty,max=64"`
	MFAEnabled  *bool             `json:"mfa_enabled"`
	ContextTags map[string]string `json:"context_tags"`
}

// UpdateProfile updates profile fields and context tags
// PATCH /api/v1/principals/:id/profile
func (h *PrincipalHandler) UpdateProfile(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid principal id")
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	principal, err := h.registry.UpdateProfile(c.Context(), id, service.UpdateProfileRequest{
		DisplayName: req.DisplayName,
		PhoneNumber: req.PhoneNumber,
		Locale:      req.Locale,
		Timezone:    req.Timezone,
		MFAEnabled:  req.MFAEnabled,
		ContextTags: domain.ContextTags(req.ContextTags),
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(principal)
}

// HeartbeatRequest represents the request body for device heartbeats
type HeartbeatRequest struct {
	FirmwareVersion *string `json:"firmware_version" validate:"omitempty,max=64"`
	LocationInfo    *string `json:"location_info" validate:"omitempty,max=255"`
}

// RecordHeartbeat records a device heartbeat
// POST /api/v1/principals/:id/heartbeat
func (h *PrincipalHandler) RecordHeartbeat(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid principal id")
	}

	var req HeartbeatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	principal, err := h.registry.RecordHeartbeat(c.Context(), id, req.FirmwareVersion, req.LocationInfo)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(principal)
}
