package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds everything read from the environment, built once at startup
// and passed to constructors.
type Config struct {
	Port           string
	AllowedOrigins string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	CronSecret string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SQLitePath string

	// SchedulePolicy is "exact" (fire only on the scheduled minute) or
	// "catchup" (fire any time past it, for coarse cron cadences).
	SchedulePolicy string

	// EnableScheduler runs the in-process per-minute tick. Off by default:
	// the usual deployment has an external cron hitting the trigger endpoint.
	EnableScheduler bool
}

func Load() Config {
	cfg := Config{
		Port:            getEnv("PORT", "3000"),
		AllowedOrigins:  os.Getenv("ALLOWED_ORIGINS"),
		VAPIDPublicKey:  strings.TrimSpace(os.Getenv("VAPID_PUBLIC_KEY")),
		VAPIDPrivateKey: strings.TrimSpace(os.Getenv("VAPID_PRIVATE_KEY")),
		VAPIDSubject:    getEnv("VAPID_SUBJECT", "mailto:before-work@localhost"),
		CronSecret:      os.Getenv("CRON_SECRET"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		SQLitePath:      getEnv("SQLITE_PATH", "./data/beforework.db"),
		SchedulePolicy:  getEnv("SCHEDULE_POLICY", "exact"),
		EnableScheduler: os.Getenv("ENABLE_SCHEDULER") == "true",
	}

	if n, err := strconv.Atoi(getEnv("REDIS_DB", "0")); err == nil {
		cfg.RedisDB = n
	}

	return cfg
}

// StoreConfigured reports whether a backing store for subscriptions exists.
func (c Config) StoreConfigured() bool {
	return c.RedisAddr != ""
}

// PushConfigured reports whether the push pipeline can work end to end:
// VAPID signing keys plus a place to keep subscriptions.
func (c Config) PushConfigured() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != "" && c.StoreConfigured()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
