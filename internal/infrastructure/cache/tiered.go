package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// sharedEntry is the store payload. WrittenAt travels with the value so a
// replica reading it back keeps the original expiry.
type sharedEntry[T any] struct {
	Data      T         `json:"data"`
	WrittenAt time.Time `json:"written_at"`
}

// Tiered fronts a shared Store with a local GenericCache.
//
// Reads try the local cache, then the store; a store hit is copied into the
// local cache with its original write time. Writes go to both. Store
// failures are logged and treated as misses so a Redis outage only costs
// upstream traffic. Store keys are namespaced by the cache name.
type Tiered[T any] struct {
	local  *GenericCache[T]
	remote Store
}

// NewTiered creates a Tiered cache. remote may be nil for a local-only cache.
func NewTiered[T any](local *GenericCache[T], remote Store) *Tiered[T] {
	return &Tiered[T]{
		local:  local,
		remote: remote,
	}
}

// Get returns the value stored under key in either tier.
func (t *Tiered[T]) Get(ctx context.Context, key string) (T, bool) {
	if v, ok := t.local.Get(key); ok {
		return v, true
	}

	var zero T
	if t.remote == nil {
		return zero, false
	}

	data, err := t.remote.Get(ctx, t.remoteKey(key))
	if err != nil {
		slog.Warn("shared cache get failed, treating as miss",
			"cache", t.local.Name(),
			"key", key,
			"error", err,
		)
		return zero, false
	}
	if data == nil {
		return zero, false
	}

	var e sharedEntry[T]
	if err := json.Unmarshal(data, &e); err != nil || e.WrittenAt.IsZero() {
		slog.Warn("discarding undecodable shared cache entry",
			"cache", t.local.Name(),
			"key", key,
			"error", err,
		)
		t.dropRemote(ctx, key)
		return zero, false
	}

	// The store's own expiry is only a backstop; replica clocks decide.
	if !t.local.SetAt(key, e.Data, e.WrittenAt) {
		t.dropRemote(ctx, key)
		return zero, false
	}
	return e.Data, true
}

// Set writes v to both tiers.
func (t *Tiered[T]) Set(ctx context.Context, key string, v T) {
	now := t.local.Now()
	t.local.SetAt(key, v, now)

	if t.remote == nil {
		return
	}

	data, err := json.Marshal(sharedEntry[T]{Data: v, WrittenAt: now})
	if err != nil {
		slog.Warn("failed to encode shared cache entry",
			"cache", t.local.Name(),
			"key", key,
			"error", err,
		)
		return
	}

	if err := t.remote.Set(ctx, t.remoteKey(key), data, t.local.TTL()); err != nil {
		slog.Warn("failed to write shared cache entry",
			"cache", t.local.Name(),
			"key", key,
			"error", err,
		)
	}
}

// Clear empties the local tier and removes this cache's keys from the store.
func (t *Tiered[T]) Clear(ctx context.Context) error {
	t.local.Clear()

	if t.remote == nil {
		return nil
	}
	n, err := t.remote.DeletePrefix(ctx, t.remoteKey(""))
	if err != nil {
		return fmt.Errorf("clear shared %s cache: %w", t.local.Name(), err)
	}
	slog.Debug("shared cache cleared", "cache", t.local.Name(), "keys", n)
	return nil
}

// Local returns the in-memory tier.
func (t *Tiered[T]) Local() *GenericCache[T] {
	return t.local
}

func (t *Tiered[T]) remoteKey(key string) string {
	return t.local.Name() + ":" + key
}

// dropRemote removes an entry this tier cannot serve.
func (t *Tiered[T]) dropRemote(ctx context.Context, key string) {
	if err := t.remote.Delete(ctx, t.remoteKey(key)); err != nil {
		slog.Warn("failed to delete shared cache entry",
			"cache", t.local.Name(),
			"key", key,
			"error", err,
		)
	}
}
