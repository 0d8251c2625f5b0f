package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Slot identifies one of the three daily reminder categories.
type Slot string

const (
	SlotMorning    Slot = "morning"
	SlotBeforeWork Slot = "beforeWork"
	SlotStreakRisk Slot = "streakRisk"
)

// SlotOrder is the fixed evaluation order within a tick.
var SlotOrder = []Slot{SlotMorning, SlotBeforeWork, SlotStreakRisk}

func ValidSlot(s Slot) bool {
	return s == SlotMorning || s == SlotBeforeWork || s == SlotStreakRisk
}

type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// ReminderTimes holds one HH:MM wall-clock time per slot, local to the
// subscriber.
type ReminderTimes struct {
	Morning    string `json:"morning"`
	BeforeWork string `json:"beforeWork"`
	StreakRisk string `json:"streakRisk"`
}

func (t ReminderTimes) For(slot Slot) string {
	switch slot {
	case SlotMorning:
		return t.Morning
	case SlotBeforeWork:
		return t.BeforeWork
	case SlotStreakRisk:
		return t.StreakRisk
	}
	return ""
}

func (t *ReminderTimes) Set(slot Slot, value string) {
	switch slot {
	case SlotMorning:
		t.Morning = value
	case SlotBeforeWork:
		t.BeforeWork = value
	case SlotStreakRisk:
		t.StreakRisk = value
	}
}

// Subscription is one push endpoint with its reminder configuration.
// LastSent maps a slot to the calendar date (YYYY-MM-DD, subscriber's zone)
// on which it was last delivered; the date stamp self-expires daily.
type Subscription struct {
	ID        string           `json:"id"`
	Endpoint  string           `json:"endpoint"`
	Keys      SubscriptionKeys `json:"keys"`
	Times     ReminderTimes    `json:"times"`
	Timezone  string           `json:"timezone,omitempty"`
	LastSent  map[Slot]string  `json:"lastSent,omitempty"`
	CreatedAt time.Time        `json:"createdAt,omitempty"`
}

// SubscriptionID derives the stable id for an endpoint, so re-subscribing
// the same endpoint updates rather than duplicates.
func SubscriptionID(endpoint string) string {
	sum := sha256.Sum256([]byte(endpoint))
	return hex.EncodeToString(sum[:])
}

// ParseClock parses a 24-hour "HH:MM" time (one or two hour digits, two
// minute digits).
func ParseClock(s string) (hour, minute int, err error) {
	if len(s) < 4 || len(s) > 5 || s[len(s)-3] != ':' {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	for i, r := range s {
		if i == len(s)-3 {
			continue
		}
		if r < '0' || r > '9' {
			return 0, 0, fmt.Errorf("invalid time %q", s)
		}
	}
	hour, _ = strconv.Atoi(s[:len(s)-3])
	minute, _ = strconv.Atoi(s[len(s)-2:])
	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("time %q out of range", s)
	}
	return hour, minute, nil
}

func ValidClock(s string) bool {
	_, _, err := ParseClock(s)
	return err == nil
}

type SubscribeRequest struct {
	Subscription struct {
		Endpoint       string           `json:"endpoint"`
		Keys           SubscriptionKeys `json:"keys"`
		ExpirationTime *float64         `json:"expirationTime,omitempty"`
	} `json:"subscription"`
	Times    ReminderTimes `json:"times"`
	Timezone string        `json:"timezone,omitempty"`
}

type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint,omitempty"`
	ID       string `json:"id,omitempty"`
}

type UpdateTimesRequest struct {
	Endpoint string          `json:"endpoint"`
	Times    map[Slot]string `json:"times"`
}

// Checklist mirrors the four-part workout flow; two ticked items count as a
// completed workout.
type Checklist struct {
	Warmup      bool `json:"warmup"`
	Main        bool `json:"main"`
	Accessories bool `json:"accessories"`
	Stretch     bool `json:"stretch"`
}

func (c Checklist) Ticked() int {
	n := 0
	for _, v := range []bool{c.Warmup, c.Main, c.Accessories, c.Stretch} {
		if v {
			n++
		}
	}
	return n
}

type WorkoutEntry struct {
	Date      string     `json:"date"`
	Completed bool       `json:"completed"`
	Checklist *Checklist `json:"checklist,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
}

type LogWorkoutRequest struct {
	Date      string     `json:"date,omitempty"`
	Checklist *Checklist `json:"checklist,omitempty"`
}

type StreakResponse struct {
	Streak            int  `json:"streak"`
	AtRisk            bool `json:"atRisk"`
	MissedYesterday   bool `json:"missedYesterday"`
	ConsecutiveMisses int  `json:"consecutiveMisses"`
}
