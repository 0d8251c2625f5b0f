package store_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"beforework/internal/models"
	"beforework/internal/store"
)

const subscriptionsKey = "before-work-push-subscriptions"

func setupTestStore(t *testing.T) (*store.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return store.NewWithClient(client), mr
}

func testSub(endpoint string) models.Subscription {
	return models.Subscription{
		ID:       models.SubscriptionID(endpoint),
		Endpoint: endpoint,
		Keys:     models.SubscriptionKeys{P256dh: "p256dh-key", Auth: "auth-key"},
		Times:    models.ReminderTimes{Morning: "07:00", BeforeWork: "08:45", StreakRisk: "20:00"},
		Timezone: "Europe/Warsaw",
	}
}

func TestUpsertAndListRoundTrip(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	want := testSub("https://push.example/e1")
	want.LastSent = map[models.Slot]string{models.SlotMorning: "2026-08-30"}

	count, err := s.UpsertByEndpoint(ctx, want)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}

	subs := s.List(ctx)
	if len(subs) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(subs))
	}
	got := subs[0]
	if got.Endpoint != want.Endpoint || got.Keys != want.Keys || got.Times != want.Times || got.Timezone != want.Timezone {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if got.LastSent[models.SlotMorning] != "2026-08-30" {
		t.Fatal("lastSent must survive the round trip")
	}
	if got.ID != models.SubscriptionID(want.Endpoint) {
		t.Fatalf("expected content-addressed id, got %q", got.ID)
	}
}

func TestUpsertReplacesSameEndpoint(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	first := testSub("https://push.example/e1")
	if _, err := s.UpsertByEndpoint(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := first
	second.Times.Morning = "06:30"
	count, err := s.UpsertByEndpoint(ctx, second)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("re-registration must replace, got count %d", count)
	}
	if subs := s.List(ctx); subs[0].Times.Morning != "06:30" {
		t.Fatalf("expected updated time, got %q", subs[0].Times.Morning)
	}
}

func TestUpsertRejectsInvalidTimes(t *testing.T) {
	s, _ := setupTestStore(t)

	sub := testSub("https://push.example/e1")
	sub.Times.StreakRisk = "25:00"
	if _, err := s.UpsertByEndpoint(context.Background(), sub); err == nil {
		t.Fatal("expected an error for an out-of-range time")
	}
}

func TestDeleteByIDOrEndpoint(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	endpoint := "https://push.example/e1"
	if _, err := s.UpsertByEndpoint(ctx, testSub(endpoint)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertByEndpoint(ctx, testSub("https://push.example/e2")); err != nil {
		t.Fatal(err)
	}

	// Delete by the deterministic hash of the endpoint.
	removed, err := s.DeleteByIDOrEndpoint(ctx, models.SubscriptionID(endpoint))
	if err != nil {
		t.Fatal(err)
	}
	if !removed {
		t.Fatal("expected removed=true")
	}
	if subs := s.List(ctx); len(subs) != 1 || subs[0].Endpoint != "https://push.example/e2" {
		t.Fatalf("unexpected remaining subscriptions: %+v", subs)
	}

	// Delete by endpoint.
	removed, err = s.DeleteByIDOrEndpoint(ctx, "https://push.example/e2")
	if err != nil {
		t.Fatal(err)
	}
	if !removed {
		t.Fatal("expected removed=true")
	}

	// Nothing left to delete.
	removed, err = s.DeleteByIDOrEndpoint(ctx, "https://push.example/e2")
	if err != nil {
		t.Fatal(err)
	}
	if removed {
		t.Fatal("expected removed=false for an unknown key")
	}
}

func TestListEmptyAndUnreachable(t *testing.T) {
	s, mr := setupTestStore(t)
	ctx := context.Background()

	if subs := s.List(ctx); len(subs) != 0 {
		t.Fatalf("expected empty list, got %d", len(subs))
	}

	mr.Close()
	if subs := s.List(ctx); len(subs) != 0 {
		t.Fatal("an unreachable store must read as empty, not fail")
	}
	if ok := s.ReplaceAll(ctx, []models.Subscription{testSub("https://push.example/e1")}); ok {
		t.Fatal("a failed write must report false")
	}
}

func TestNilStoreDegradesToEmpty(t *testing.T) {
	var s *store.Store
	ctx := context.Background()

	if s.Ready() {
		t.Fatal("nil store must not report ready")
	}
	if subs := s.List(ctx); subs != nil {
		t.Fatal("nil store must list empty")
	}
	if s.ReplaceAll(ctx, nil) {
		t.Fatal("nil store must refuse writes")
	}
	if status, count := s.Status(ctx); status != "not configured" || count != 0 {
		t.Fatalf("unexpected status: %q %d", status, count)
	}
}

func TestLegacyShapeUpgradedOnLoad(t *testing.T) {
	s, mr := setupTestStore(t)

	legacy := `[{
		"endpoint": "https://push.example/old",
		"subscription": {
			"endpoint": "https://push.example/old",
			"keys": {"p256dh": "pk", "auth": "ak"},
			"expirationTime": null
		},
		"times": {"morning": "07:00", "beforeWork": "08:45", "streakRisk": "20:00"},
		"timezone": "Asia/Karachi",
		"lastSent": {"date": "2026-08-30", "morning": true, "beforeWork": false}
	}]`
	mr.Set(subscriptionsKey, legacy)

	subs := s.List(context.Background())
	if len(subs) != 1 {
		t.Fatalf("expected the legacy record to load, got %d", len(subs))
	}
	got := subs[0]
	if got.Keys.P256dh != "pk" || got.Keys.Auth != "ak" {
		t.Fatalf("expected nested keys to be lifted, got %+v", got.Keys)
	}
	if got.ID != models.SubscriptionID("https://push.example/old") {
		t.Fatal("expected a derived id for the legacy record")
	}
	if got.LastSent[models.SlotMorning] != "2026-08-30" {
		t.Fatalf("expected boolean lastSent upgraded to a dated slot, got %+v", got.LastSent)
	}
	if _, ok := got.LastSent[models.SlotBeforeWork]; ok {
		t.Fatal("unsent slots must not gain a date")
	}
}

func TestInvalidRecordsDroppedOnLoad(t *testing.T) {
	s, mr := setupTestStore(t)

	stored := []map[string]any{
		{
			// no endpoint
			"keys":  map[string]string{"p256dh": "pk", "auth": "ak"},
			"times": map[string]string{"morning": "07:00", "beforeWork": "08:45", "streakRisk": "20:00"},
		},
		{
			// missing a time field
			"endpoint": "https://push.example/partial",
			"keys":     map[string]string{"p256dh": "pk", "auth": "ak"},
			"times":    map[string]string{"morning": "07:00"},
		},
		{
			"endpoint": "https://push.example/ok",
			"keys":     map[string]string{"p256dh": "pk", "auth": "ak"},
			"times":    map[string]string{"morning": "07:00", "beforeWork": "08:45", "streakRisk": "20:00"},
		},
	}
	raw, _ := json.Marshal(stored)
	mr.Set(subscriptionsKey, string(raw))

	subs := s.List(context.Background())
	if len(subs) != 1 || subs[0].Endpoint != "https://push.example/ok" {
		t.Fatalf("expected only the valid record to survive, got %+v", subs)
	}
}

func TestMalformedCollectionTreatedAsEmpty(t *testing.T) {
	s, mr := setupTestStore(t)
	mr.Set(subscriptionsKey, "not json")

	if subs := s.List(context.Background()); len(subs) != 0 {
		t.Fatal("a corrupt collection must read as empty")
	}
}

func TestStatus(t *testing.T) {
	s, mr := setupTestStore(t)
	ctx := context.Background()

	status, count := s.Status(ctx)
	if status != "ok" || count != 0 {
		t.Fatalf("unexpected status: %q %d", status, count)
	}

	if _, err := s.UpsertByEndpoint(ctx, testSub("https://push.example/e1")); err != nil {
		t.Fatal(err)
	}
	if _, count = s.Status(ctx); count != 1 {
		t.Fatalf("expected subsCount 1, got %d", count)
	}

	mr.Close()
	status, _ = s.Status(ctx)
	if status == "ok" {
		t.Fatal("expected an error status after the store went away")
	}
}
