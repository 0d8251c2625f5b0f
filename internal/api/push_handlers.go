package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"beforework/internal/config"
	"beforework/internal/models"
	"beforework/internal/store"
)

// SubscribeHandler registers (or re-registers) a push endpoint with its
// reminder times. Re-subscribing the same endpoint replaces the record but
// keeps today's already-sent slots.
func SubscribeHandler(cfg config.Config, subs *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.PushConfigured() || !subs.Ready() {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Push not configured (missing VAPID or redis env)")
		}

		var req models.SubscribeRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if req.Subscription.Endpoint == "" || req.Subscription.Keys.P256dh == "" || req.Subscription.Keys.Auth == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Missing or invalid subscription")
		}
		for _, slot := range models.SlotOrder {
			if !models.ValidClock(req.Times.For(slot)) {
				return fiber.NewError(fiber.StatusBadRequest, "Missing or invalid reminder times")
			}
		}

		// IANA validity is best-effort: an overlong or empty value is simply
		// treated as absent and the subscriber falls back to UTC.
		tz := req.Timezone
		if len(tz) > 64 {
			tz = ""
		}

		entry := models.Subscription{
			ID:        models.SubscriptionID(req.Subscription.Endpoint),
			Endpoint:  req.Subscription.Endpoint,
			Keys:      req.Subscription.Keys,
			Times:     req.Times,
			Timezone:  tz,
			CreatedAt: time.Now().UTC(),
		}

		// A time-preference update must not reset today's sent slots.
		for _, existing := range subs.List(c.Context()) {
			if existing.Endpoint == entry.Endpoint {
				entry.LastSent = existing.LastSent
				if !existing.CreatedAt.IsZero() {
					entry.CreatedAt = existing.CreatedAt
				}
				break
			}
		}

		count, err := subs.UpsertByEndpoint(c.Context(), entry)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to save subscription: "+err.Error())
		}

		return c.JSON(fiber.Map{"ok": true, "subsCount": count})
	}
}

// UnsubscribeHandler deletes a subscription by endpoint or by id (the
// sha256 of the endpoint).
func UnsubscribeHandler(cfg config.Config, subs *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.PushConfigured() || !subs.Ready() {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Push not configured")
		}

		var req models.UnsubscribeRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		key := req.Endpoint
		if key == "" {
			key = req.ID
		}
		if key == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Missing endpoint or id")
		}

		removed, err := subs.DeleteByIDOrEndpoint(c.Context(), key)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to remove subscription: "+err.Error())
		}

		return c.JSON(fiber.Map{"ok": true, "removed": removed})
	}
}

// UpdateTimesHandler merges a partial set of reminder times into an
// existing subscription. Invalid individual values are dropped silently.
func UpdateTimesHandler(cfg config.Config, subs *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.PushConfigured() || !subs.Ready() {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Push not configured")
		}

		var req models.UpdateTimesRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if req.Endpoint == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Missing endpoint")
		}

		var target *models.Subscription
		for _, existing := range subs.List(c.Context()) {
			if existing.Endpoint == req.Endpoint || existing.ID == req.Endpoint {
				sub := existing
				target = &sub
				break
			}
		}
		if target == nil {
			return fiber.NewError(fiber.StatusNotFound, "Subscription not found")
		}

		for slot, value := range req.Times {
			if models.ValidSlot(slot) && models.ValidClock(value) {
				target.Times.Set(slot, value)
			}
		}

		if _, err := subs.UpsertByEndpoint(c.Context(), *target); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to save subscription: "+err.Error())
		}

		return c.JSON(fiber.Map{"ok": true, "times": target.Times})
	}
}

// VapidPublicKeyHandler exposes the public half of the signing keypair for
// client-side subscription.
func VapidPublicKeyHandler(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.VAPIDPublicKey == "" {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Push notifications not configured")
		}
		return c.JSON(fiber.Map{"publicKey": cfg.VAPIDPublicKey})
	}
}
