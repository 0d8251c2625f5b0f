package api

import (
	"time"

	"beforework/internal/models"
)

const dateLayout = "2006-01-02"

// dayLog is the full workout history keyed by date.
type dayLog map[string]models.WorkoutEntry

// completed reports whether the day counts as a workout: an explicit
// completion, or at least two ticked checklist items.
func (l dayLog) completed(dateKey string) bool {
	entry, ok := l[dateKey]
	if !ok {
		return false
	}
	if entry.Completed {
		return true
	}
	if entry.Checklist == nil {
		return false
	}
	return entry.Checklist.Ticked() >= 2
}

// Weekend = rest day; no workout required, doesn't count as a miss.
func isRestDay(dateKey string) bool {
	d, err := time.Parse(dateLayout, dateKey)
	if err != nil {
		return false
	}
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// currentStreak counts consecutive completed days ending today (or
// yesterday when today isn't done yet), never reaching back past the
// tracking start date.
func currentStreak(l dayLog, start string, today time.Time) int {
	day := today
	if !l.completed(day.Format(dateLayout)) {
		day = day.AddDate(0, 0, -1)
	}
	streak := 0
	for {
		key := day.Format(dateLayout)
		if start != "" && key < start {
			break
		}
		if !l.completed(key) {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// missedYesterday reports a weekday miss yesterday. Rest days and days
// before tracking started don't count.
func missedYesterday(l dayLog, start string, today time.Time) bool {
	key := today.AddDate(0, 0, -1).Format(dateLayout)
	if start != "" && key < start {
		return false
	}
	if isRestDay(key) {
		return false
	}
	return !l.completed(key)
}

// streakAtRisk: missed yesterday (weekday) and nothing logged today yet.
func streakAtRisk(l dayLog, start string, today time.Time) bool {
	if l.completed(today.Format(dateLayout)) {
		return false
	}
	return missedYesterday(l, start, today)
}

const maxDaysBack = 366

// consecutiveWeekdayMisses counts weekday misses going back from yesterday,
// skipping rest days, stopping at a completed day, the tracking start, or
// the last forgiveness date.
func consecutiveWeekdayMisses(l dayLog, start, forgivenAt string, today time.Time) int {
	day := today.AddDate(0, 0, -1)
	count := 0
	for i := 0; i < maxDaysBack; i++ {
		key := day.Format(dateLayout)
		if start != "" && key < start {
			break
		}
		if forgivenAt != "" && key <= forgivenAt {
			break
		}
		if isRestDay(key) {
			day = day.AddDate(0, 0, -1)
			continue
		}
		if l.completed(key) {
			break
		}
		count++
		day = day.AddDate(0, 0, -1)
	}
	return count
}
