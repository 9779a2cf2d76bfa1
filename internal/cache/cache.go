package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by a Store when no entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// Store is the raw key/value backend. Injected so tests can substitute an
// in-memory implementation.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte) error
}

type envelope struct {
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}

// Cache wraps a Store with a TTL. A read returns whatever payload exists;
// the TTL only classifies it as fresh or stale. Corruption and decode
// failures are indistinguishable from a miss.
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func New(store Store, ttl time.Duration) *Cache {
	return &Cache{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get decodes the cached payload for key into dst. The second result reports
// a hit; the first reports whether the entry is still within its TTL.
func (c *Cache) Get(ctx context.Context, key string, dst interface{}) (bool, bool) {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		return false, false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, false
	}

	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return false, false
	}

	return c.now().Sub(env.TS) <= c.ttl, true
}

// Set overwrites the entry for key. Concurrent writers for the same key are
// last-write-wins; entries are reconstructible from the authoritative log.
func (c *Cache) Set(ctx context.Context, key string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache payload: %w", err)
	}

	raw, err := json.Marshal(envelope{TS: c.now(), Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := c.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return nil
}

// MessagesKey identifies the cached timeline of a user pair, optionally
// scoped to one booking.
func MessagesKey(userID, peerID string, bookingID *string) string {
	booking := "none"
	if bookingID != nil && *bookingID != "" {
		booking = *bookingID
	}
	return fmt.Sprintf("msgs_%s_%s_%s", userID, peerID, booking)
}

// ConversationsKey identifies the cached conversation list of a user.
func ConversationsKey(userID string) string {
	return "convos_" + userID
}
