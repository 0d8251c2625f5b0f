package store

import (
	"encoding/json"
	"log"
	"time"

	"beforework/internal/models"
)

// storedSubscription tolerates both the current record shape and the legacy
// one, where the transport keys sat under a nested "subscription" object and
// lastSent was a boolean per slot keyed by a shared date field.
type storedSubscription struct {
	ID       string                   `json:"id"`
	Endpoint string                   `json:"endpoint"`
	Keys     *models.SubscriptionKeys `json:"keys"`

	Subscription *struct {
		Endpoint string                  `json:"endpoint"`
		Keys     models.SubscriptionKeys `json:"keys"`
	} `json:"subscription"`

	Times     models.ReminderTimes `json:"times"`
	Timezone  string               `json:"timezone"`
	LastSent  json.RawMessage      `json:"lastSent"`
	CreatedAt time.Time            `json:"createdAt"`
}

// decodeSubscriptions parses the stored collection and upgrades every record
// to the canonical shape. Records that cannot be minimally validated are
// dropped, with a count logged, rather than carried along corrupted.
func decodeSubscriptions(raw []byte) []models.Subscription {
	var stored []storedSubscription
	if err := json.Unmarshal(raw, &stored); err != nil {
		log.Printf("store: stored collection is not a JSON array, treating as empty: %v", err)
		return nil
	}

	subs := make([]models.Subscription, 0, len(stored))
	dropped := 0
	for _, rec := range stored {
		sub, ok := rec.normalize()
		if !ok {
			dropped++
			continue
		}
		subs = append(subs, sub)
	}
	if dropped > 0 {
		log.Printf("store: dropped %d invalid subscription record(s) on load", dropped)
	}
	return subs
}

func (rec storedSubscription) normalize() (models.Subscription, bool) {
	sub := models.Subscription{
		ID:        rec.ID,
		Endpoint:  rec.Endpoint,
		Times:     rec.Times,
		Timezone:  rec.Timezone,
		LastSent:  normalizeLastSent(rec.LastSent),
		CreatedAt: rec.CreatedAt,
	}

	switch {
	case rec.Keys != nil:
		sub.Keys = *rec.Keys
	case rec.Subscription != nil:
		sub.Keys = rec.Subscription.Keys
		if sub.Endpoint == "" {
			sub.Endpoint = rec.Subscription.Endpoint
		}
	}

	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return models.Subscription{}, false
	}
	for _, slot := range models.SlotOrder {
		if sub.Times.For(slot) == "" {
			return models.Subscription{}, false
		}
	}
	if sub.ID == "" {
		sub.ID = models.SubscriptionID(sub.Endpoint)
	}
	return sub, true
}

// normalizeLastSent upgrades the legacy {date, slot: bool} shape to the
// per-slot date map. Anything unrecognized is discarded, never guessed at.
func normalizeLastSent(raw json.RawMessage) map[models.Slot]string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var current map[models.Slot]string
	if err := json.Unmarshal(raw, &current); err == nil {
		out := make(map[models.Slot]string)
		for slot, date := range current {
			if models.ValidSlot(slot) && validDate(date) {
				out[slot] = date
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}

	var legacy struct {
		Date       string `json:"date"`
		Morning    bool   `json:"morning"`
		BeforeWork bool   `json:"beforeWork"`
		StreakRisk bool   `json:"streakRisk"`
	}
	if err := json.Unmarshal(raw, &legacy); err != nil || !validDate(legacy.Date) {
		return nil
	}
	out := make(map[models.Slot]string)
	if legacy.Morning {
		out[models.SlotMorning] = legacy.Date
	}
	if legacy.BeforeWork {
		out[models.SlotBeforeWork] = legacy.Date
	}
	if legacy.StreakRisk {
		out[models.SlotStreakRisk] = legacy.Date
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
