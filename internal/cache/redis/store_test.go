package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airdrop-scout/internal/cache"
)

var _ cache.Cache = (*Store)(nil)

func TestStore_GetHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewStoreWithClient(db, "scout:")

	mock.ExpectGet("scout:score:0xabc:zksync").SetVal(`{"current_score":50}`)

	val, ok, err := s.Get(context.Background(), "score:0xabc:zksync")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"current_score":50}`, string(val))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewStoreWithClient(db, "")

	mock.ExpectGet("missing").RedisNil()

	val, ok, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, val)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SetUsesNativeTTL(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewStoreWithClient(db, "p:")

	mock.ExpectSet("p:k", []byte("v"), 5*time.Minute).SetVal("OK")

	require.NoError(t, s.Set(context.Background(), "k", []byte("v"), 5*time.Minute))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Delete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewStoreWithClient(db, "p:")

	mock.ExpectDel("p:k").SetVal(1)

	require.NoError(t, s.Delete(context.Background(), "k"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ErrorsAreUnavailable(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewStoreWithClient(db, "")

	mock.ExpectGet("k").SetErr(errors.New("connection refused"))

	_, ok, err := s.Get(context.Background(), "k")
	assert.False(t, ok)

	var unavailable *cache.CacheUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "redis", unavailable.Backend)
	assert.Equal(t, "get", unavailable.Op)
}

func TestStore_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewStoreWithClient(db, "")

	for i := 0; i < 3; i++ {
		mock.ExpectSet("k", []byte("v"), time.Minute).SetErr(errors.New("timeout"))
		require.Error(t, s.Set(context.Background(), "k", []byte("v"), time.Minute))
	}

	// No expectation registered: an open breaker must not reach the client.
	err := s.Set(context.Background(), "k", []byte("v"), time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, gobreaker.StateOpen, s.breaker.State())
}
