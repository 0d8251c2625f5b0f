package api

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"beforework/internal/config"
	"beforework/internal/scheduler"
	"beforework/internal/store"
)

func SetupRoutes(app *fiber.App, cfg config.Config, subs *store.Store, sched *scheduler.Scheduler, db *sql.DB) {
	api := app.Group("/api")

	// Push subscription routes
	push := api.Group("/push")
	push.Get("/vapid-public-key", VapidPublicKeyHandler(cfg))
	push.Post("/subscribe", SubscribeHandler(cfg, subs))
	push.Post("/unsubscribe", UnsubscribeHandler(cfg, subs))
	push.Put("/times", UpdateTimesHandler(cfg, subs))

	// Scheduler trigger and diagnostics, both behind the cron secret
	cron := api.Group("/cron", CronAuthMiddleware(cfg))
	cron.Get("/send-due-notifications", SendDueNotificationsHandler(sched))
	cron.Get("/check-store", CheckStoreHandler(subs))

	// Workout log routes
	workouts := api.Group("/workouts")
	workouts.Post("/log", LogWorkoutHandler(db))
	workouts.Get("/", ListWorkoutsHandler(db))
	workouts.Get("/streak", StreakHandler(db))
	workouts.Post("/start", StartTrackingHandler(db))
	workouts.Post("/reset", ResetHandler(db))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
