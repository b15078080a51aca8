// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package authz implements the authorization decision engine: ownership,
// container ACLs with a wildcard marker, and the privileged execute bypass.
package authz

import (
	"net/http"
	"slices"
	"strings"

	"github.com/stacklok/liteauth/pkg/identity"
)

// Wildcard is the ACL entry granting access to any authenticated identity.
const Wildcard = "*"

// ExecuteHeader is the execution-trigger header checked by the privileged
// bypass rule.
const ExecuteHeader = "X-Zerovm-Execute"

// Reason classifies a denial.
type Reason string

// Denial reasons. ReasonNone is carried by grants.
const (
	ReasonNone         Reason = ""
	ReasonUnauthorized Reason = "unauthorized"
	ReasonForbidden    Reason = "forbidden"
)

// Context is the per-request input to the decision engine. The ACL is
// attached by the storage layer before the decision is consulted; the
// gateway never computes it.
type Context struct {
	Account   string
	Container string
	Object    string
	Method    string
	Caller    identity.Identity

	// ACL lists identities permitted on the container, possibly including
	// the wildcard marker.
	ACL []string

	// Execute is set when the execution-trigger header was present.
	Execute bool
}

// Decision is the outcome of an authorization check. Owner marks the caller
// as the resource owner, which bypasses further ACL checks downstream.
type Decision struct {
	Allowed bool
	Owner   bool
	Reason  Reason
}

// Authorizer evaluates the access rules for one identity namespace.
type Authorizer struct {
	prefix string
}

// NewAuthorizer creates an Authorizer for accounts in the given namespace.
func NewAuthorizer(prefix string) *Authorizer {
	return &Authorizer{prefix: prefix}
}

// Decide evaluates the access rules in order; the first match wins:
//
//  1. Requests outside the identity namespace are denied.
//  2. A POST carrying the execute header on the caller's own account is
//     granted without owner elevation.
//  3. The account owner is granted with owner elevation, except for
//     account-level mutations (DELETE/PUT/POST with no container).
//  4. A caller listed on the container ACL, or any authenticated caller
//     when the ACL carries the wildcard, is granted without elevation.
//  5. Everything else is denied: unauthorized for anonymous callers,
//     forbidden for authenticated ones.
//
// Ownership uses exact identity/account equality. The system this replaces
// matched on substring containment, which also admitted any account whose
// name merely embedded the caller's identity.
func (a *Authorizer) Decide(c Context) Decision {
	if c.Account == "" || !strings.HasPrefix(c.Account, a.prefix) {
		return a.deny(c)
	}

	owns := !c.Caller.Anonymous() && c.Caller.Account() == c.Account

	if c.Method == http.MethodPost && c.Execute && owns {
		return a.grant(c, false)
	}

	if owns && (!mutatingMethod(c.Method) || c.Container != "") {
		return a.grant(c, true)
	}

	if c.Container != "" {
		if slices.Contains(c.ACL, Wildcard) || (!c.Caller.Anonymous() && slices.Contains(c.ACL, c.Caller.String())) {
			return a.grant(c, false)
		}
	}

	return a.deny(c)
}

// mutatingMethod reports whether the method mutates top-level account state.
func mutatingMethod(method string) bool {
	switch method {
	case http.MethodDelete, http.MethodPut, http.MethodPost:
		return true
	}
	return false
}

func (*Authorizer) grant(_ Context, owner bool) Decision {
	decisionsTotal.WithLabelValues(outcomeGranted).Inc()
	return Decision{Allowed: true, Owner: owner}
}

func (*Authorizer) deny(c Context) Decision {
	reason := ReasonForbidden
	if c.Caller.Anonymous() {
		reason = ReasonUnauthorized
	}
	decisionsTotal.WithLabelValues(string(reason)).Inc()
	return Decision{Reason: reason}
}
