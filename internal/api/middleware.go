package api

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"beforework/internal/config"
)

// CronAuthMiddleware protects the scheduler trigger and diagnostics routes.
// The trigger sends "Authorization: Bearer <CRON_SECRET>"; infrastructure
// triggers that cannot set headers may pass ?secret= instead.
func CronAuthMiddleware(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.CronSecret == "" {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Cron secret not configured")
		}

		supplied := c.Query("secret")
		authHeader := c.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			supplied = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if subtle.ConstantTimeCompare([]byte(supplied), []byte(cfg.CronSecret)) != 1 {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
		}

		return c.Next()
	}
}
