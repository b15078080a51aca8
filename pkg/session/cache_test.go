// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/liteauth/pkg/identity"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCacheWithClient(client, "g_"), mr
}

func TestRedisCachePutGet(t *testing.T) {
	t.Parallel()
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "tok-1", identity.Identity("g_42"), time.Hour))

	id, ok, err := cache.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, identity.Identity("g_42"), id)
}

func TestRedisCacheMissingToken(t *testing.T) {
	t.Parallel()
	cache, _ := newTestCache(t)

	id, ok, err := cache.Get(context.Background(), "never-stored")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestRedisCacheLogicallyExpiredEntryIsAbsent(t *testing.T) {
	t.Parallel()
	cache, mr := newTestCache(t)
	ctx := context.Background()

	// Plant an entry whose recorded expiry has passed but whose physical
	// TTL has not fired, simulating clock skew between writer and backend.
	entry := storedEntry{
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
		Identity:  "g_42",
	}
	data, err := json.Marshal(entry)
	require.NoError(t, err)
	require.NoError(t, mr.Set("g_/token/skewed", string(data)))

	_, ok, err := cache.Get(ctx, "skewed")
	require.NoError(t, err)
	assert.False(t, ok, "logically expired entry must be treated as absent")
}

func TestRedisCachePhysicalTTLEviction(t *testing.T) {
	t.Parallel()
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "tok-ttl", identity.Identity("g_7"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.Get(ctx, "tok-ttl")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheDelete(t *testing.T) {
	t.Parallel()
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "tok-del", identity.Identity("g_9"), time.Hour))
	require.NoError(t, cache.Delete(ctx, "tok-del"))

	_, ok, err := cache.Get(ctx, "tok-del")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent token is not an error.
	require.NoError(t, cache.Delete(ctx, "tok-del"))
}

func TestRedisCacheLastWriterWins(t *testing.T) {
	t.Parallel()
	cache, _ := newTestCache(t)
	ctx := context.Background()

	// Two refresh racers re-derive the same identity; both writes are
	// individually consistent.
	require.NoError(t, cache.Put(ctx, "tok-race", identity.Identity("g_42"), time.Minute))
	require.NoError(t, cache.Put(ctx, "tok-race", identity.Identity("g_42"), time.Hour))

	id, ok, err := cache.Get(ctx, "tok-race")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, identity.Identity("g_42"), id)
}

func TestNewRedisCacheValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := NewRedisCache(ctx, RedisConfig{KeyPrefix: "g_"})
	require.Error(t, err)

	_, err = NewRedisCache(ctx, RedisConfig{Addr: "localhost:6379"})
	require.Error(t, err)
}

func TestNewRedisCacheUnreachableBackendIsFatal(t *testing.T) {
	t.Parallel()

	// A dead backend must surface as a construction error, not be deferred
	// to request time.
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(context.Background(), RedisConfig{
		Addr:        addr,
		KeyPrefix:   "g_",
		DialTimeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}
