package api

import (
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"beforework/internal/models"
)

const (
	metaTrackingStarted = "tracking_started"
	metaForgivenAt      = "forgiven_at"
)

func loadWorkouts(db *sql.DB) (dayLog, error) {
	rows, err := db.Query("SELECT date, completed, checklist, created_at FROM workouts")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make(dayLog)
	for rows.Next() {
		var entry models.WorkoutEntry
		var checklist sql.NullString
		if err := rows.Scan(&entry.Date, &entry.Completed, &checklist, &entry.CreatedAt); err != nil {
			log.Printf("Error scanning workout entry: %v", err)
			continue
		}
		if checklist.Valid && checklist.String != "" {
			var c models.Checklist
			if err := json.Unmarshal([]byte(checklist.String), &c); err == nil {
				entry.Checklist = &c
			}
		}
		entries[entry.Date] = entry
	}
	return entries, rows.Err()
}

func getMeta(db *sql.DB, key string) string {
	var value string
	err := db.QueryRow("SELECT value FROM tracker_meta WHERE key = ?", key).Scan(&value)
	if err != nil {
		return ""
	}
	return value
}

func setMeta(db *sql.DB, key, value string) error {
	_, err := db.Exec(
		`INSERT INTO tracker_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

func validDateKey(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// LogWorkoutHandler records today's workout: either an outright completion
// or a checklist, where two ticked items count as done. Only today can be
// logged, never yesterday or the future.
func LogWorkoutHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.LogWorkoutRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		today := time.Now().Format(dateLayout)
		if req.Date == "" {
			req.Date = today
		}
		if req.Date != today {
			return fiber.NewError(fiber.StatusBadRequest, "Only today can be logged")
		}

		entries, err := loadWorkouts(db)
		if err != nil {
			return err
		}

		entry := models.WorkoutEntry{Date: req.Date, Completed: true}
		if req.Checklist != nil {
			entry.Checklist = req.Checklist
			entry.Completed = req.Checklist.Ticked() >= 2
		} else if entries.completed(req.Date) {
			// Cannot log twice for the same day.
			existing := entries[req.Date]
			return c.JSON(existing)
		}

		var checklistJSON interface{}
		if entry.Checklist != nil {
			data, err := json.Marshal(entry.Checklist)
			if err != nil {
				return err
			}
			checklistJSON = string(data)
		}

		_, err = db.Exec(
			`INSERT INTO workouts (date, completed, checklist) VALUES (?, ?, ?)
			ON CONFLICT(date) DO UPDATE SET
			completed = excluded.completed,
			checklist = excluded.checklist`,
			entry.Date, entry.Completed, checklistJSON,
		)
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(entry)
	}
}

// ListWorkoutsHandler returns the full history keyed by date.
func ListWorkoutsHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entries, err := loadWorkouts(db)
		if err != nil {
			return err
		}
		return c.JSON(entries)
	}
}

// StreakHandler computes the current streak and whether it is at risk.
func StreakHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entries, err := loadWorkouts(db)
		if err != nil {
			return err
		}
		start := getMeta(db, metaTrackingStarted)
		forgivenAt := getMeta(db, metaForgivenAt)
		today := time.Now()

		return c.JSON(models.StreakResponse{
			Streak:            currentStreak(entries, start, today),
			AtRisk:            streakAtRisk(entries, start, today),
			MissedYesterday:   missedYesterday(entries, start, today),
			ConsecutiveMisses: consecutiveWeekdayMisses(entries, start, forgivenAt, today),
		})
	}
}

// StartTrackingHandler sets the date tracking begins; days before it are
// ignored by streak and miss computations.
func StartTrackingHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Date string `json:"date,omitempty"`
		}
		if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if req.Date == "" {
			req.Date = time.Now().Format(dateLayout)
		}
		if !validDateKey(req.Date) {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid date")
		}
		if err := setMeta(db, metaTrackingStarted, req.Date); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"ok": true, "trackingStarted": req.Date})
	}
}

// ResetHandler forgives all misses through today and records the reset.
func ResetHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		today := time.Now().Format(dateLayout)
		if err := setMeta(db, metaForgivenAt, today); err != nil {
			return err
		}
		if _, err := db.Exec("INSERT INTO resets (date) VALUES (?)", today); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"ok": true, "forgivenAt": today})
	}
}
