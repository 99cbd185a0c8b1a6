package directory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingLookup struct {
	exists bool
	err    error
	calls  int
}

func (l *countingLookup) EmployeeExists(context.Context, int64, string) (bool, error) {
	l.calls++
	return l.exists, l.err
}

// unreachableRedis points at a closed port so every command fails fast.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestCachedDirectory_FailsOpenWhenRedisIsDown(t *testing.T) {
	next := &countingLookup{exists: true}
	cached := NewCachedDirectory(next, unreachableRedis(t), time.Minute, zap.NewNop())

	for i := 0; i < 2; i++ {
		exists, err := cached.EmployeeExists(context.Background(), 3, "Bearer x")
		require.NoError(t, err)
		assert.True(t, exists)
	}
	assert.Equal(t, 2, next.calls)
}

func TestCachedDirectory_PassesThroughNotFoundAndErrors(t *testing.T) {
	next := &countingLookup{exists: false}
	cached := NewCachedDirectory(next, unreachableRedis(t), time.Minute, zap.NewNop())

	exists, err := cached.EmployeeExists(context.Background(), 3, "")
	require.NoError(t, err)
	assert.False(t, exists)

	boom := errors.New("boom")
	next.err = boom
	_, err = cached.EmployeeExists(context.Background(), 3, "")
	assert.ErrorIs(t, err, boom)
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCachedDirectory_HitSkipsDirectory(t *testing.T) {
	_, rdb := newMiniRedis(t)
	next := &countingLookup{exists: true}
	cached := NewCachedDirectory(next, rdb, time.Minute, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		exists, err := cached.EmployeeExists(ctx, 7, "Bearer a")
		require.NoError(t, err)
		assert.True(t, exists)
	}
	assert.Equal(t, 1, next.calls)
}

func TestCachedDirectory_MissFillsWithTTL(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	next := &countingLookup{exists: true}
	cached := NewCachedDirectory(next, rdb, 90*time.Second, zap.NewNop())

	key := cacheKey(7, "Bearer a")
	assert.False(t, mr.Exists(key))

	exists, err := cached.EmployeeExists(context.Background(), 7, "Bearer a")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.True(t, mr.Exists(key))
	assert.Equal(t, 90*time.Second, mr.TTL(key))

	// 过期后重新询问目录
	mr.FastForward(91 * time.Second)
	_, err = cached.EmployeeExists(context.Background(), 7, "Bearer a")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedDirectory_NotFoundIsNeverCached(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	next := &countingLookup{exists: false}
	cached := NewCachedDirectory(next, rdb, time.Minute, zap.NewNop())

	for i := 0; i < 2; i++ {
		exists, err := cached.EmployeeExists(context.Background(), 7, "Bearer a")
		require.NoError(t, err)
		assert.False(t, exists)
	}
	assert.Equal(t, 2, next.calls)
	assert.Empty(t, mr.Keys())

	// the employee appears in the directory later
	next.exists = true
	exists, err := cached.EmployeeExists(context.Background(), 7, "Bearer a")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCachedDirectory_ErrorsAreNotCached(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	boom := errors.New("boom")
	next := &countingLookup{exists: true, err: boom}
	cached := NewCachedDirectory(next, rdb, time.Minute, zap.NewNop())

	_, err := cached.EmployeeExists(context.Background(), 7, "Bearer a")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, mr.Keys())
}

func TestCachedDirectory_EntriesAreScopedToCredential(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, rdb := newMiniRedis(t)
	cached := NewCachedDirectory(NewClient(srv.URL, time.Second, zap.NewNop()), rdb, time.Minute, zap.NewNop())
	ctx := context.Background()

	exists, err := cached.EmployeeExists(ctx, 7, "Bearer good")
	require.NoError(t, err)
	assert.True(t, exists)

	// a rejected token must not be answered from the entry cached for "Bearer good"
	exists, err = cached.EmployeeExists(ctx, 7, "Bearer forged")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.False(t, exists)
	assert.Equal(t, int32(2), hits.Load())

	// the original credential is still served from Redis
	_, err = cached.EmployeeExists(ctx, 7, "Bearer good")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCacheKey(t *testing.T) {
	a := cacheKey(42, "Bearer a")
	assert.Regexp(t, `^employee:exists:[0-9a-f]{32}:42$`, a)
	assert.Equal(t, a, cacheKey(42, "Bearer a"))
	assert.NotEqual(t, a, cacheKey(42, "Bearer b"))
	assert.NotEqual(t, a, cacheKey(43, "Bearer a"))
	assert.NotContains(t, a, "Bearer")
}
