package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"airdrop-scout/internal/observability"
)

// Memo is a typed, JSON-encoded front end over a Cache.
//
// Backend failures never reach callers: reads fall back to compute and writes
// are logged and dropped. Concurrent misses on the same key share a single
// compute call, so callers may receive the same value (and, for pointer
// types, the same pointer).
type Memo[T any] struct {
	backend Cache
	group   singleflight.Group
	logger  zerolog.Logger
}

// NewMemo wraps backend.
func NewMemo[T any](backend Cache, logger zerolog.Logger) *Memo[T] {
	return &Memo[T]{
		backend: backend,
		logger:  logger.With().Str("component", "cache").Logger(),
	}
}

// GetOrCompute returns the cached value for key, or runs compute, stores its
// result for ttl and returns it. hit reports whether the value came from the
// backend. A compute error is returned as is and nothing is cached.
//
// The shared compute runs detached from any single caller's cancellation.
// A caller whose ctx is done returns ctx.Err() at once; the others keep
// waiting and the result is still cached.
func (m *Memo[T]) GetOrCompute(
	ctx context.Context,
	key string,
	ttl time.Duration,
	compute func(ctx context.Context) (T, error),
) (value T, hit bool, err error) {
	var zero T
	if v, ok := m.Get(ctx, key); ok {
		return v, true, nil
	}
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}

	detached := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (interface{}, error) {
		v, err := compute(detached)
		if err != nil {
			return v, err
		}
		m.Set(detached, key, v, ttl)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		return res.Val.(T), false, nil
	}
}

// Get returns the cached value. Backend errors and undecodable entries are
// reported as a miss.
func (m *Memo[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	ns := namespaceOf(key)

	raw, ok, err := m.backend.Get(ctx, key)
	if err != nil {
		m.recordError("get", key, err)
		observability.RecordCacheMiss(ns)
		return zero, false
	}
	if !ok {
		observability.RecordCacheMiss(ns)
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("dropping undecodable cache entry")
		m.Delete(ctx, key)
		observability.RecordCacheMiss(ns)
		return zero, false
	}

	observability.RecordCacheHit(ns)
	return v, true
}

// Set stores v under key for ttl.
func (m *Memo[T]) Set(ctx context.Context, key string, v T, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("cache value not encodable")
		return
	}
	if err := m.backend.Set(ctx, key, raw, ttl); err != nil {
		m.recordError("set", key, err)
	}
}

// Delete invalidates key.
func (m *Memo[T]) Delete(ctx context.Context, key string) {
	if err := m.backend.Delete(ctx, key); err != nil {
		m.recordError("delete", key, err)
	}
}

func (m *Memo[T]) recordError(op, key string, err error) {
	observability.RecordCacheError(op)
	m.logger.Warn().Err(err).Str("op", op).Str("key", key).Msg("cache backend failure, continuing without cache")
}

// namespaceOf returns the key segment before the first ':'.
func namespaceOf(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}
