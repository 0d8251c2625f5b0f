package models_test

import (
	"testing"

	"beforework/internal/models"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in     string
		hour   int
		minute int
		ok     bool
	}{
		{"07:00", 7, 0, true},
		{"7:00", 7, 0, true},
		{"23:59", 23, 59, true},
		{"0:00", 0, 0, true},
		{"24:00", 0, 0, false},
		{"12:60", 0, 0, false},
		{"bogus", 0, 0, false},
		{"", 0, 0, false},
		{"1200", 0, 0, false},
		{"12:0", 0, 0, false},
		{"-1:30", 0, 0, false},
	}
	for _, tc := range cases {
		h, m, err := models.ParseClock(tc.in)
		if tc.ok != (err == nil) {
			t.Fatalf("ParseClock(%q): unexpected err %v", tc.in, err)
		}
		if tc.ok && (h != tc.hour || m != tc.minute) {
			t.Fatalf("ParseClock(%q) = %d:%d, want %d:%d", tc.in, h, m, tc.hour, tc.minute)
		}
	}
}

func TestSubscriptionID(t *testing.T) {
	a := models.SubscriptionID("https://push.example/e1")
	b := models.SubscriptionID("https://push.example/e1")
	c := models.SubscriptionID("https://push.example/e2")

	if a != b {
		t.Fatal("the id must be deterministic")
	}
	if a == c {
		t.Fatal("different endpoints must not collide")
	}
	if len(a) != 64 {
		t.Fatalf("expected a hex sha256, got %q", a)
	}
}

func TestReminderTimesSlotAccess(t *testing.T) {
	times := models.ReminderTimes{Morning: "07:00", BeforeWork: "08:45", StreakRisk: "20:00"}
	for _, slot := range models.SlotOrder {
		if times.For(slot) == "" {
			t.Fatalf("missing value for %s", slot)
		}
	}
	times.Set(models.SlotBeforeWork, "09:15")
	if times.BeforeWork != "09:15" {
		t.Fatalf("Set did not apply: %+v", times)
	}
}

func TestChecklistTicked(t *testing.T) {
	if n := (models.Checklist{}).Ticked(); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
	if n := (models.Checklist{Warmup: true, Stretch: true}).Ticked(); n != 2 {
		t.Fatalf("expected 2, got %d", n)
	}
}
