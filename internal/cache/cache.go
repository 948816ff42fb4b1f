// Package cache memoizes expensive per-address results behind a pluggable
// key/value backend.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
// Get reports a miss as (nil, false, nil); backend failures are returned as
// *CacheUnavailableError.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CacheUnavailableError reports a cache backend that could not serve a request.
type CacheUnavailableError struct {
	Backend string
	Op      string
	Err     error
}

func (e *CacheUnavailableError) Error() string {
	return fmt.Sprintf("cache unavailable: %s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *CacheUnavailableError) Unwrap() error {
	return e.Err
}
