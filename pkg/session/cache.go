// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package session manages the server-side session token lifecycle: the
// shared token cache mapping bearer tokens to identities, and the transport
// cookie that carries the token.
package session

import (
	"context"
	"time"

	"github.com/stacklok/liteauth/pkg/identity"
)

// Cache maps session tokens to identities with a bounded lifetime.
// Authentication cannot function without a reachable backend, so
// constructors fail hard instead of degrading to a pass-through.
type Cache interface {
	// Put stores the token -> identity mapping with the given TTL.
	Put(ctx context.Context, token string, id identity.Identity, ttl time.Duration) error

	// Get resolves a token. A missing entry is not an error: ok is false
	// and err is nil. Entries whose recorded expiry has passed are treated
	// as absent even if the backend has not evicted them yet.
	Get(ctx context.Context, token string) (id identity.Identity, ok bool, err error)

	// Delete removes the entry unconditionally. Deleting an absent token
	// is not an error.
	Delete(ctx context.Context, token string) error
}
