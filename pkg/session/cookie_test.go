// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieRoundTrip(t *testing.T) {
	t.Parallel()

	cookie := NewCookie("opaque-token", "storage.example.com", time.Hour)

	r := httptest.NewRequest(http.MethodGet, "/v1/g_42", nil)
	r.AddCookie(cookie)

	token, ok := TokenFromRequest(r)
	assert.True(t, ok)
	assert.Equal(t, "opaque-token", token)
}

func TestCookieAttributes(t *testing.T) {
	t.Parallel()

	before := time.Now().Add(time.Hour)
	cookie := NewCookie("tok", "storage.example.com", time.Hour)
	after := time.Now().Add(time.Hour)

	assert.Equal(t, CookieName, cookie.Name)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, "storage.example.com", cookie.Domain)

	// Absolute calendar expiry, not a max-age delta.
	assert.Zero(t, cookie.MaxAge)
	require.False(t, cookie.Expires.IsZero())
	assert.False(t, cookie.Expires.Before(before.UTC().Truncate(time.Second)))
	assert.False(t, cookie.Expires.After(after.UTC().Add(time.Second)))
}

func TestCookieOmitsDomainForLocalHosts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		domain     string
		wantDomain bool
	}{
		{"localhost", false},
		{"localhost:8080", false},
		{"127.0.0.1", false},
		{"storage.example.com", true},
		{"example.com", true},
	}

	for _, tt := range tests {
		cookie := NewCookie("tok", tt.domain, time.Hour)
		if tt.wantDomain {
			assert.Equal(t, tt.domain, cookie.Domain, "domain %q", tt.domain)
		} else {
			assert.Empty(t, cookie.Domain, "domain %q", tt.domain)
		}
	}
}

func TestClearCookie(t *testing.T) {
	t.Parallel()

	cookie := ClearCookie("storage.example.com")
	assert.Empty(t, cookie.Value)
	assert.False(t, cookie.Expires.After(time.Now()))
}

func TestTokenFromRequestAbsent(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/v1/g_42", nil)
	token, ok := TokenFromRequest(r)
	assert.False(t, ok)
	assert.Empty(t, token)

	// An unrelated cookie does not count.
	r.AddCookie(&http.Cookie{Name: "other", Value: "x"})
	_, ok = TokenFromRequest(r)
	assert.False(t, ok)
}
