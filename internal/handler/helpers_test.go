package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudcentinel/principal-service/internal/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponseStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"conflict", domain.ErrUsernameAlreadyExists, http.StatusConflict, "USERNAME_ALREADY_EXISTS"},
		{"special case", domain.NewInactivePrincipalFound(uuid.New()), http.StatusConflict, "INACTIVE_PRINCIPAL_FOUND"},
		{"not found", domain.ErrPrincipalNotFound, http.StatusNotFound, "PRINCIPAL_NOT_FOUND"},
		{"invalid state", domain.ErrRotationNotDue, http.StatusUnprocessableEntity, "ROTATION_NOT_DUE"},
		{"validation", domain.NewValidationError("bad"), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"external sync", domain.NewExternalSyncError("create_client", errors.New("down")), http.StatusBadGateway, "EXTERNAL_SYNC_FAILED"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return errorResponse(c, tt.err)
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)

			var body map[string]interface{}
			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(raw, &body))

			assert.Equal(t, true, body["error"])
			if tt.code != "" {
				assert.Equal(t, tt.code, body["code"])
			}
		})
	}
}

func TestErrorResponseIncludesDetails(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return errorResponse(c, domain.NewRetentionPeriodNotMet(29))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "29", body.Details["days_remaining"])
}
