package schedule

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

const cacheTTL = 24 * time.Hour

// KV is the key/value cache the schedule store is fronted by.
type KV interface {
	Key(parts ...string) string
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type Store interface {
	Getter
	Saver
}

// CachedStore serves schedules from the cache and falls back to the store.
// Cache failures are logged and never fail a lookup.
type CachedStore struct {
	Store
	cache KV
}

func NewCachedStore(store Store, cache KV) *CachedStore {
	return &CachedStore{Store: store, cache: cache}
}

func (c *CachedStore) Get(ctx context.Context, date string) (*View, error) {
	key := c.cache.Key("schedule", date)

	if data, err := c.cache.Get(ctx, key); err == nil && data != "" {
		var view View
		if err := json.Unmarshal([]byte(data), &view); err == nil {
			return &view, nil
		}
	}

	view, err := c.Store.Get(ctx, date)
	if err != nil || view == nil {
		return view, err
	}

	if data, err := json.Marshal(view); err == nil {
		if err := c.cache.Set(ctx, key, string(data), cacheTTL); err != nil {
			log.Printf("[Schedule] Failed to cache %s: %v", date, err)
		}
	}
	return view, nil
}

func (c *CachedStore) Save(ctx context.Context, view *View) error {
	if err := c.Store.Save(ctx, view); err != nil {
		return err
	}
	if err := c.cache.Delete(ctx, c.cache.Key("schedule", view.Date)); err != nil {
		log.Printf("[Schedule] Failed to invalidate %s: %v", view.Date, err)
	}
	return nil
}
