package push

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"beforework/internal/config"
	"beforework/internal/models"
)

// Payload is the notification body shown by the service worker.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// Result classifies one delivery attempt. Expired means the push service
// reported the endpoint permanently gone (404/410); any other failure is
// transient and may succeed on a later attempt.
type Result struct {
	OK         bool
	Expired    bool
	StatusCode int
	Err        error
}

// Sender delivers one payload to one subscriber. No retries: retry policy
// belongs to the scheduler.
type Sender interface {
	Send(ctx context.Context, sub models.Subscription, payload Payload) Result
}

// WebPush sends VAPID-signed web push notifications.
type WebPush struct {
	options webpush.Options
}

func NewWebPush(cfg config.Config) *WebPush {
	return &WebPush{
		options: webpush.Options{
			Subscriber:      cfg.VAPIDSubject,
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			TTL:             60,
		},
	}
}

func (w *WebPush) Send(ctx context.Context, sub models.Subscription, payload Payload) Result {
	data, err := json.Marshal(payload)
	if err != nil {
		return Result{Err: fmt.Errorf("failed to marshal payload: %w", err)}
	}

	target := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}

	opts := w.options
	resp, err := webpush.SendNotificationWithContext(ctx, data, target, &opts)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Result{OK: true, StatusCode: resp.StatusCode}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	sendErr := fmt.Errorf("push service returned %d: %s", resp.StatusCode, body)
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return Result{Expired: true, StatusCode: resp.StatusCode, Err: sendErr}
	}
	return Result{StatusCode: resp.StatusCode, Err: sendErr}
}
