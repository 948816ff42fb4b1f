// Package redis is a cache.Cache backend on Redis.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"airdrop-scout/internal/cache"
)

const backendName = "redis"

// Config holds Redis connection settings.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Store implements cache.Cache using go-redis. Every call runs through a
// circuit breaker; an open breaker fails immediately with CacheUnavailableError.
type Store struct {
	client  goredis.UniversalClient
	prefix  string
	breaker *gobreaker.CircuitBreaker
}

// NewStore connects a new client from cfg.
func NewStore(cfg Config) *Store {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewStoreWithClient(client, cfg.KeyPrefix)
}

// NewStoreWithClient wraps an existing client.
func NewStoreWithClient(client goredis.UniversalClient, prefix string) *Store {
	return &Store{
		client:  client,
		prefix:  prefix,
		breaker: newBreaker(),
	}
}

func newBreaker() *gobreaker.CircuitBreaker {
	st := gobreaker.Settings{Name: backendName}
	st.Interval = 60 * time.Second
	st.Timeout = 30 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	return gobreaker.NewCircuitBreaker(st)
}

// Get returns the value for key. redis.Nil is a miss, not an error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		val   []byte
		found bool
	)
	_, err := s.breaker.Execute(func() (interface{}, error) {
		b, err := s.client.Get(ctx, s.prefix+key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		val, found = b, true
		return nil, nil
	})
	if err != nil {
		return nil, false, unavailable("get", err)
	}
	return val, found, nil
}

// Set stores value with a native TTL. A ttl <= 0 stores without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Set(ctx, s.prefix+key, value, ttl).Err()
	})
	if err != nil {
		return unavailable("set", err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Del(ctx, s.prefix+key).Err()
	})
	if err != nil {
		return unavailable("delete", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func unavailable(op string, err error) error {
	return &cache.CacheUnavailableError{Backend: backendName, Op: op, Err: err}
}
