package handler

import (
	"github.com/gofiber/fiber/v2"
)

func SetupRoutes(
	app *fiber.App,
	principalHandler *PrincipalHandler,
	lifecycleHandler *LifecycleHandler,
	membershipHandler *MembershipHandler,
	healthHandler *HealthHandler,
) {
	// Health checks (public)
	app.Get("/health", healthHandler.Health)
	app.Get("/ready", healthHandler.Ready)

	// API v1
	api := app.Group("/api/v1")

	principals := api.Group("/principals")

	// Registration, one route per principal type
	principals.Post("/humans", principalHandler.CreateHuman)
	principals.Post("/services", principalHandler.CreateService)
	principals.Post("/systems", principalHandler.CreateSystem)
	principals.Post("/devices", principalHandler.CreateDevice)

	principals.Get("/", principalHandler.ListPrincipals)
	principals.Get("/:id", principalHandler.GetPrincipal)
	principals.Patch("/:id/profile", principalHandler.UpdateProfile)
	principals.Post("/:id/heartbeat", principalHandler.RecordHeartbeat)

	// Lifecycle transitions
	principals.Post("/:id/activate", lifecycleHandler.Activate)
	principals.Post("/:id/suspend", lifecycleHandler.Suspend)
	principals.Post("/:id/deactivate", lifecycleHandler.Deactivate)
	principals.Delete("/:id", lifecycleHandler.Delete)

	// Credential rotation
	principals.Post("/:id/credentials/rotate", lifecycleHandler.RotateCredentials)

	// Tenant memberships
	principals.Post("/:id/memberships", membershipHandler.AddMembership)
	principals.Get("/:id/memberships", membershipHandler.ListMemberships)
	principals.Delete("/:id/memberships/:tenantId", membershipHandler.RemoveMembership)
}
