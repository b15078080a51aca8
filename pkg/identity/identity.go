// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package identity defines the principal type used throughout liteauth.
package identity

import (
	"errors"
)

// DefaultPrefix is the namespace tag prepended to provider user IDs.
const DefaultPrefix = "g_"

// Identity represents an authenticated principal derived from a federated
// login. It is an opaque string formed as <prefix><providerUserID> and is
// used both as the authorization subject and as the storage account name.
// Immutable once created; the zero value is the anonymous identity.
type Identity string

// ErrEmptySubject is returned when the provider reports no user ID.
var ErrEmptySubject = errors.New("provider user ID is empty")

// New derives an Identity from a namespace prefix and a provider user ID.
func New(prefix, providerUserID string) (Identity, error) {
	if providerUserID == "" {
		return "", ErrEmptySubject
	}
	return Identity(prefix + providerUserID), nil
}

// Account returns the storage account name for this identity. The account
// namespace is the identity namespace, so this is the identity itself.
func (i Identity) Account() string {
	return string(i)
}

// Anonymous reports whether this is the unauthenticated identity.
func (i Identity) Anonymous() bool {
	return i == ""
}

// String returns the identity as a plain string.
func (i Identity) String() string {
	return string(i)
}
