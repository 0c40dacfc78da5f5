package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	db    *sqlx.DB
	redis *redis.Client
}

func NewHealthHandler(db *sqlx.DB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{
		db:    db,
		redis: redisClient,
	}
}

// Health returns basic health status
// GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "ok",
		"service": "principal-service",
	})
}

// Ready probes the database and event stream connections
// GET /ready
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	checks := fiber.Map{
		"database": "ok",
		"events":   "ok",
	}
	status := fiber.StatusOK
	ready := "ready"

	if h.db != nil {
		if err := h.db.PingContext(c.Context()); err != nil {
			checks["database"] = err.Error()
			status = fiber.StatusServiceUnavailable
			ready = "degraded"
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(c.Context()).Err(); err != nil {
			checks["events"] = err.Error()
			status = fiber.StatusServiceUnavailable
			ready = "degraded"
		}
	}

	return c.Status(status).JSON(fiber.Map{
		"status": ready,
		"checks": checks,
	})
}
