package main

import (
	"context"
	"log"
	"strings"

	"beforework/internal/api"
	"beforework/internal/config"
	"beforework/internal/database"
	"beforework/internal/push"
	"beforework/internal/scheduler"
	"beforework/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}
	cfg := config.Load()

	// Initialize the workout log database
	db, err := database.Initialize(cfg.SQLitePath)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	// Subscription store; a missing REDIS_ADDR disables reminders but the
	// rest of the API stays up.
	var subs *store.Store
	if cfg.StoreConfigured() {
		subs, err = store.New(cfg)
		if err != nil {
			log.Fatal("Failed to initialize subscription store:", err)
		}
		defer subs.Close()
	} else {
		log.Println("WARNING: REDIS_ADDR not set; push subscriptions are disabled")
	}

	if !cfg.PushConfigured() {
		log.Println("WARNING: VAPID keys not fully configured; reminders cannot be delivered")
	}

	sender := push.NewWebPush(cfg)
	sched := scheduler.New(subs, sender, scheduler.Policy(cfg.SchedulePolicy))

	// Run the in-process per-minute trigger only if enabled; the usual
	// deployment drives ticks through the cron endpoint instead.
	if cfg.EnableScheduler {
		log.Printf("Starting in-process scheduler (policy: %s)...", cfg.SchedulePolicy)
		runner := cron.New()
		_, err := runner.AddFunc("* * * * *", func() {
			stats := sched.RunTick(context.Background())
			if stats.Sent > 0 || stats.Deleted > 0 || stats.Failed > 0 {
				log.Printf("tick: processed=%d sent=%d deleted=%d failed=%d",
					stats.Processed, stats.Sent, stats.Deleted, stats.Failed)
			}
		})
		if err != nil {
			log.Fatal("Failed to schedule reminder tick:", err)
		}
		runner.Start()
		defer runner.Stop()
	} else {
		log.Println("In-process scheduler disabled (set ENABLE_SCHEDULER=true to enable)")
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New())

	// CORS configuration: restrict to specific origins for security
	allowedOrigins := strings.TrimSpace(cfg.AllowedOrigins)
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:80,http://localhost:5173" // Default for local dev
		log.Println("WARNING: Using default ALLOWED_ORIGINS. Set ALLOWED_ORIGINS env var for production.")
	} else if allowedOrigins != "*" {
		// Normalize comma-separated list (trim whitespace around entries)
		parts := strings.Split(allowedOrigins, ",")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}
		allowedOrigins = strings.Join(parts, ",")
	}

	log.Printf("CORS allowed origins: %s", allowedOrigins)

	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Setup routes
	api.SetupRoutes(app, cfg, subs, sched, db)

	log.Printf("Server starting on port %s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}
