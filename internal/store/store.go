package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"beforework/internal/config"
	"beforework/internal/models"
)

// All subscriptions live as one JSON array under this single key; the whole
// collection is the only consistency unit.
const subscriptionsKey = "before-work-push-subscriptions"

// Store keeps the push subscription collection in redis. A nil Store (or one
// without a client) behaves as an empty, unwritable store so callers degrade
// to "zero subscriptions" instead of crashing.
type Store struct {
	client *redis.Client
}

func New(cfg config.Config) (*Store, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("redis not configured: REDIS_ADDR is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		// The client reconnects on its own; a failed ping at boot should not
		// take the service down.
		log.Printf("store: redis unreachable at startup: %v", err)
	}

	return &Store{client: client}, nil
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Ready() bool {
	return s != nil && s.client != nil
}

func (s *Store) Close() error {
	if !s.Ready() {
		return nil
	}
	return s.client.Close()
}

// List loads and normalizes the full collection. An unreachable or empty
// backing store yields an empty slice, never an error.
func (s *Store) List(ctx context.Context) []models.Subscription {
	if !s.Ready() {
		return nil
	}
	raw, err := s.client.Get(ctx, subscriptionsKey).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		log.Printf("store: read failed, treating as empty: %v", err)
		return nil
	}
	return decodeSubscriptions([]byte(raw))
}

// ReplaceAll overwrites the entire stored collection. It reports success
// rather than failing hard so callers can still report partial progress.
func (s *Store) ReplaceAll(ctx context.Context, subs []models.Subscription) bool {
	if !s.Ready() {
		return false
	}
	if subs == nil {
		subs = []models.Subscription{}
	}
	data, err := json.Marshal(subs)
	if err != nil {
		log.Printf("store: marshal failed: %v", err)
		return false
	}
	if err := s.client.Set(ctx, subscriptionsKey, data, 0).Err(); err != nil {
		log.Printf("store: write failed: %v", err)
		return false
	}
	return true
}

// UpsertByEndpoint replaces any record with the same endpoint and returns
// the resulting collection size.
func (s *Store) UpsertByEndpoint(ctx context.Context, sub models.Subscription) (int, error) {
	if !s.Ready() {
		return 0, fmt.Errorf("subscription store not configured")
	}
	for _, slot := range models.SlotOrder {
		if !models.ValidClock(sub.Times.For(slot)) {
			return 0, fmt.Errorf("invalid %s time %q", slot, sub.Times.For(slot))
		}
	}
	if sub.ID == "" {
		sub.ID = models.SubscriptionID(sub.Endpoint)
	}

	subs := s.List(ctx)
	next := make([]models.Subscription, 0, len(subs)+1)
	for _, existing := range subs {
		if existing.Endpoint != sub.Endpoint {
			next = append(next, existing)
		}
	}
	next = append(next, sub)

	if !s.ReplaceAll(ctx, next) {
		return 0, fmt.Errorf("failed to persist subscriptions")
	}
	return len(next), nil
}

// DeleteByIDOrEndpoint removes the record whose id or endpoint matches key
// and reports whether anything was removed.
func (s *Store) DeleteByIDOrEndpoint(ctx context.Context, key string) (bool, error) {
	if !s.Ready() {
		return false, fmt.Errorf("subscription store not configured")
	}
	subs := s.List(ctx)
	next := make([]models.Subscription, 0, len(subs))
	for _, existing := range subs {
		if existing.ID == key || existing.Endpoint == key {
			continue
		}
		next = append(next, existing)
	}
	if len(next) == len(subs) {
		return false, nil
	}
	if !s.ReplaceAll(ctx, next) {
		return false, fmt.Errorf("failed to persist subscriptions")
	}
	return true, nil
}

// Status reports connectivity plus the current subscriber count, for the
// diagnostics endpoint.
func (s *Store) Status(ctx context.Context) (string, int) {
	if !s.Ready() {
		return "not configured", 0
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Sprintf("error: %v", err), 0
	}
	return "ok", len(s.List(ctx))
}
