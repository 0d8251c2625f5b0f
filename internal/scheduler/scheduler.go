package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"beforework/internal/models"
	"beforework/internal/push"
)

// Policy selects the due-check variant. The two must never be mixed: exact
// requires a reliable per-minute trigger, catch-up tolerates missed ticks
// but fires backlogged slots after downtime.
type Policy string

const (
	PolicyExact   Policy = "exact"
	PolicyCatchUp Policy = "catchup"
)

// SubscriptionStore is the slice of the store the scheduler needs.
type SubscriptionStore interface {
	List(ctx context.Context) []models.Subscription
	ReplaceAll(ctx context.Context, subs []models.Subscription) bool
}

// Stats summarizes one tick.
type Stats struct {
	Processed int
	Sent      int
	Deleted   int
	Failed    int
	// Persisted is false when the final write failed; already-sent
	// notifications are still counted, they cannot be unsent.
	Persisted bool
}

// Scheduler runs the per-minute reminder tick: load everything, evaluate
// each subscription's slots in its own timezone, send what is due, persist
// the whole collection once at the end.
type Scheduler struct {
	store  SubscriptionStore
	sender push.Sender
	policy Policy

	now func() time.Time

	// Serializes ticks within this process; overlapping ticks across
	// processes are tolerated because lastSent gates re-delivery.
	mu sync.Mutex
}

func New(store SubscriptionStore, sender push.Sender, policy Policy) *Scheduler {
	if policy != PolicyCatchUp {
		policy = PolicyExact
	}
	return &Scheduler{
		store:  store,
		sender: sender,
		policy: policy,
		now:    time.Now,
	}
}

// RunTick processes every subscription once. At most one successful send per
// subscription per tick; expired endpoints are removed; transient failures
// are counted and retried naturally on a later tick.
func (s *Scheduler) RunTick(ctx context.Context) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.store.List(ctx)
	stats := Stats{Processed: len(subs), Persisted: true}
	if len(subs) == 0 {
		return stats
	}

	remaining := make([]models.Subscription, 0, len(subs))
	for _, sub := range subs {
		keep := s.processOne(ctx, &sub, &stats)
		if keep {
			remaining = append(remaining, sub)
		}
	}

	if !s.store.ReplaceAll(ctx, remaining) {
		stats.Persisted = false
		log.Printf("scheduler: failed to persist %d subscription(s) after tick", len(remaining))
	}
	return stats
}

// processOne evaluates one subscription's slots in fixed order. Returns
// false when the subscription's endpoint has expired and it must be removed.
func (s *Scheduler) processOne(ctx context.Context, sub *models.Subscription, stats *Stats) bool {
	loc := locationFor(sub.Timezone)
	now := s.now().In(loc)
	today := now.Format("2006-01-02")

	for _, slot := range models.SlotOrder {
		if sub.LastSent[slot] == today {
			continue
		}
		due, err := isDue(sub.Times.For(slot), now, s.policy)
		if err != nil {
			// Malformed time: the slot fails closed, the tick goes on.
			continue
		}
		if !due {
			continue
		}

		res := s.sender.Send(ctx, *sub, slotCopy(slot))
		switch {
		case res.OK:
			if sub.LastSent == nil {
				sub.LastSent = make(map[models.Slot]string)
			}
			sub.LastSent[slot] = today
			stats.Sent++
			// One send per subscription per tick bounds bursts.
			return true
		case res.Expired:
			stats.Deleted++
			log.Printf("scheduler: removing expired subscription %s: %v", sub.ID, res.Err)
			return false
		default:
			stats.Failed++
			log.Printf("scheduler: push failed for %s (%s): %v", sub.ID, slot, res.Err)
		}
	}
	return true
}

func locationFor(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func isDue(clock string, now time.Time, policy Policy) (bool, error) {
	h, m, err := models.ParseClock(clock)
	if err != nil {
		return false, err
	}
	if policy == PolicyCatchUp {
		return now.Hour() > h || (now.Hour() == h && now.Minute() >= m), nil
	}
	return now.Hour() == h && now.Minute() == m, nil
}

// Fixed copy per slot: facts only, no motivation quotes.
func slotCopy(slot models.Slot) push.Payload {
	switch slot {
	case models.SlotMorning:
		return push.Payload{Title: "Before Work", Body: "Workout = commute. Start now.", URL: "/"}
	case models.SlotBeforeWork:
		return push.Payload{Title: "Before Work", Body: "Log your workout before work starts.", URL: "/"}
	default:
		return push.Payload{Title: "Before Work", Body: "Streak at risk. 10 minutes still counts.", URL: "/"}
	}
}
