package api

import (
	"github.com/gofiber/fiber/v2"

	"beforework/internal/scheduler"
	"beforework/internal/store"
)

// SendDueNotificationsHandler runs one reminder tick. Cron target: every
// minute.
func SendDueNotificationsHandler(sched *scheduler.Scheduler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats := sched.RunTick(c.Context())

		resp := fiber.Map{
			"processed": stats.Processed,
			"sent":      stats.Sent,
			"deleted":   stats.Deleted,
			"failed":    stats.Failed,
		}
		if !stats.Persisted {
			// Sends already happened; the next tick redoes the bookkeeping.
			resp["persistFailed"] = true
		}
		return c.JSON(resp)
	}
}

// CheckStoreHandler verifies the deployment is talking to the expected
// backing store.
func CheckStoreHandler(subs *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status, count := subs.Status(c.Context())
		return c.JSON(fiber.Map{"store": status, "subsCount": count})
	}
}
