package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/cupido/internal/cache"
)

// HealthHandler exposes liveness and readiness probes.
type HealthHandler struct {
	db    *gorm.DB
	cache *cache.RedisCache
}

// NewHealthHandler constructs HealthHandler. cache may be nil.
func NewHealthHandler(db *gorm.DB, c *cache.RedisCache) *HealthHandler {
	return &HealthHandler{db: db, cache: c}
}

// Health is the basic service probe.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "service": "cupido"})
}

// Live reports process liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "alive"})
}

// Ready checks the hard dependencies. Redis is optional and never
// fails readiness.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	checks := fiber.Map{
		"database": false,
		"redis":    h.cache != nil,
	}

	if h.db != nil {
		if sqlDB, err := h.db.DB(); err == nil && sqlDB.PingContext(c.Context()) == nil {
			checks["database"] = true
		}
	}

	if checks["database"] != true {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
			"checks": checks,
		})
	}

	return c.JSON(fiber.Map{"status": "ready", "checks": checks})
}
