package handler

import (
	"errors"
	"net/http"

	"github.com/cloudcentinel/principal-service/internal/domain"
	"github.com/gofiber/fiber/v2"
)

// errorResponse maps the stable domain error kinds onto HTTP. Upstream
// clients branch on the code field, never on message text.
func errorResponse(c *fiber.Ctx, err error) error {
	var de *domain.Error
	if !errors.As(err, &de) {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "internal server error",
		})
	}

	status := http.StatusInternalServerError
	switch de.Kind {
	case domain.KindConflict, domain.KindSpecialCase:
		status = http.StatusConflict
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindInvalidState:
		status = http.StatusUnprocessableEntity
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindExternalSync:
		status = http.StatusBadGateway
	}

	body := fiber.Map{
		"error":   true,
		"code":    de.Code,
		"message": de.Message,
	}
	if len(de.Details) > 0 {
		body["details"] = de.Details
	}

	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
