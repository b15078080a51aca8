// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"context"
)

// contextKey is the key used to store an Identity in the request context.
//
// Using an empty struct as the key prevents collisions with other context
// keys, as each empty struct type is distinct even if they have the same
// name in different packages.
type contextKey struct{}

// WithIdentity stores an Identity in the context. The anonymous identity is
// not stored; the original context is returned unchanged.
//
// This is called by the gateway after successful token resolution to make
// the caller available to the downstream pipeline.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if id.Anonymous() {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext retrieves the Identity from the context.
// Returns the identity and true if present, the anonymous identity and
// false otherwise.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
