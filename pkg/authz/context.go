// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package authz

import (
	"context"
)

// Callback is the authorization hook the gateway registers on forwarded
// requests. The downstream storage pipeline invokes it once the container
// ACL is known; the gateway has already bound the request target and caller.
type Callback func(acl []string) Decision

// callbackKey is the context key for the registered Callback.
type callbackKey struct{}

// WithCallback registers the authorization callback in the request context.
func WithCallback(ctx context.Context, cb Callback) context.Context {
	if cb == nil {
		return ctx
	}
	return context.WithValue(ctx, callbackKey{}, cb)
}

// CallbackFromContext retrieves the registered authorization callback.
func CallbackFromContext(ctx context.Context) (Callback, bool) {
	cb, ok := ctx.Value(callbackKey{}).(Callback)
	return cb, ok
}
