// Package cache is a thin JSON read/write-through layer over the KV store.
// Backend failures degrade to cache misses so the pipeline keeps working
// when Redis is unavailable.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dealscout/internal/db"
	"github.com/kailas-cloud/dealscout/internal/logger"
)

// store is the narrow slice of db.KVStore the cache needs.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Cache wraps a KV store with JSON marshaling and miss-on-error semantics.
type Cache struct {
	kv store
}

// New creates a Cache over the given KV store.
func New(kv store) *Cache {
	return &Cache{kv: kv}
}

// GetJSON loads and unmarshals the value at key into out.
// Returns false on miss, backend error, or corrupt payload.
func (c *Cache) GetJSON(ctx context.Context, key string, out any) bool {
	data, err := c.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			logger.FromContext(ctx).Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		logger.FromContext(ctx).Warn("cache payload corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// SetJSON marshals v and stores it at key with the given TTL.
// Failures are logged and swallowed.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.FromContext(ctx).Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.kv.SetWithTTL(ctx, key, data, ttl); err != nil {
		logger.FromContext(ctx).Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// RecordSearch bumps the daily search counter. The counter expires two days
// after its first increment.
func (c *Cache) RecordSearch(ctx context.Context, date string) {
	key := CounterKey(date)
	if err := c.kv.IncrBy(ctx, key, 1); err != nil {
		logger.FromContext(ctx).Warn("search counter failed", zap.String("key", key), zap.Error(err))
		return
	}
	_ = c.kv.Expire(ctx, key, 48*time.Hour, true)
}
