// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stacklok/liteauth/pkg/identity"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

// RedisConfig holds Redis connection configuration for the session cache.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string

	// Username and Password authenticate against Redis ACLs. Optional.
	Username string
	Password string

	// DB selects the Redis logical database.
	DB int

	// KeyPrefix namespaces cache keys, e.g. "g_". Required.
	KeyPrefix string

	// Timeouts (defaults: Dial=5s, Read=3s, Write=3s).
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisCache implements Cache on a shared Redis backend, letting multiple
// gateway instances resolve the same session tokens.
type RedisCache struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ Cache = (*RedisCache)(nil)

// storedEntry is the serialized cache value. The expiry is recorded inside
// the value in addition to the physical key TTL so that readers can reject
// entries the backend should already have evicted (clock skew between the
// writer and the TTL enforcement).
type storedEntry struct {
	ExpiresAt int64  `json:"expires_at"`
	Identity  string `json:"identity"`
}

// NewRedisCache connects to Redis and verifies connectivity. A failure here
// is a deployment error: the caller is expected to treat it as fatal rather
// than continue without authentication.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.KeyPrefix == "" {
		return nil, errors.New("key prefix is required")
	}

	// Apply defaults
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		// Close the client to prevent resource leak
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// NewRedisCacheWithClient creates a RedisCache with a pre-configured client.
// This is useful for testing with miniredis.
func NewRedisCacheWithClient(client redis.UniversalClient, keyPrefix string) *RedisCache {
	return &RedisCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Close closes the Redis client connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping checks Redis connectivity (health check).
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// tokenKey builds the cache key for a session token.
func (c *RedisCache) tokenKey(token string) string {
	return fmt.Sprintf("%s/token/%s", c.keyPrefix, token)
}

// Put stores the token -> identity mapping. Concurrent puts for the same
// token during a refresh race are last-writer-wins, which is acceptable:
// both writers derived the same identity from the same provider account.
func (c *RedisCache) Put(ctx context.Context, token string, id identity.Identity, ttl time.Duration) error {
	entry := storedEntry{
		ExpiresAt: time.Now().Add(ttl).Unix(),
		Identity:  id.String(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := c.client.Set(ctx, c.tokenKey(token), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session token: %w", err)
	}
	return nil
}

// Get resolves a token to an identity. Logically expired entries are
// reported as absent; the physical TTL should already have removed them, so
// this is a correctness backstop, not an optimization.
func (c *RedisCache) Get(ctx context.Context, token string) (identity.Identity, bool, error) {
	data, err := c.client.Get(ctx, c.tokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get session token: %w", err)
	}

	var entry storedEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return "", false, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}

	if entry.ExpiresAt < time.Now().Unix() {
		return "", false, nil
	}

	return identity.Identity(entry.Identity), true, nil
}

// Delete removes the entry for a token. Used by logout.
func (c *RedisCache) Delete(ctx context.Context, token string) error {
	if err := c.client.Del(ctx, c.tokenKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete session token: %w", err)
	}
	return nil
}
