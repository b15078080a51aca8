// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"net/http"
	"time"

	"github.com/stacklok/liteauth/pkg/networking"
)

// CookieName is the name of the transport cookie carrying the session token.
const CookieName = "session"

// NewCookie builds the session cookie for a token. The expiry is an
// absolute calendar time, not a max-age delta. The Domain attribute is set
// to the configured service domain unless that domain is a local-development
// host, in which case it is omitted entirely (browsers reject domain
// attributes on loopback-style hosts).
func NewCookie(token, domain string, ttl time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:    CookieName,
		Value:   token,
		Path:    "/",
		Expires: time.Now().Add(ttl).UTC(),
	}
	if !networking.IsLocalhost(domain) {
		cookie.Domain = domain
	}
	return cookie
}

// ClearCookie builds the cookie that terminates a session: empty value,
// immediate expiry. Used by logout.
func ClearCookie(domain string) *http.Cookie {
	return NewCookie("", domain, 0)
}

// TokenFromRequest extracts the session token from the request's cookies.
// Absence of the cookie yields ok=false, never an error.
func TokenFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
