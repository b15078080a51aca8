// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIDP is a minimal identity provider for exercising the client. It
// records the grant types it saw and serves canned token and user-info
// responses.
type fakeIDP struct {
	t          *testing.T
	grantTypes []string
	userinfo   map[string]any
}

func newFakeIDP(t *testing.T) (*fakeIDP, *httptest.Server) {
	t.Helper()
	idp := &fakeIDP{
		t:        t,
		userinfo: map[string]any{"id": "12345", "name": "Test User"},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", idp.handleToken)
	mux.HandleFunc("/userinfo", idp.handleUserinfo)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return idp, srv
}

func (f *fakeIDP) handleToken(w http.ResponseWriter, r *http.Request) {
	require.NoError(f.t, r.ParseForm())
	grantType := r.PostForm.Get("grant_type")
	f.grantTypes = append(f.grantTypes, grantType)

	resp := map[string]any{
		"token_type": "Bearer",
		"expires_in": 3600,
	}
	switch grantType {
	case "authorization_code":
		resp["access_token"] = "initial-token"
		resp["refresh_token"] = "refresh-token"
	case "refresh_token":
		resp["access_token"] = "refreshed-token"
	default:
		http.Error(w, "unsupported_grant_type", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *fakeIDP) handleUserinfo(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(f.userinfo)
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AuthURL:      srv.URL + "/auth",
		TokenURL:     srv.URL + "/token",
		UserinfoURL:  srv.URL + "/userinfo",
		RedirectURL:  "https://storage.example.com/login/",
		Scopes:       []string{"email", "profile"},
	}, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return client
}

func TestAuthCodeURL(t *testing.T) {
	t.Parallel()
	_, srv := newFakeIDP(t)
	client := newTestClient(t, srv)

	raw := client.AuthCodeURL("opaque-state")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "opaque-state", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "https://storage.example.com/login/", q.Get("redirect_uri"))
	assert.Contains(t, q.Get("scope"), "email")
}

func TestExchange(t *testing.T) {
	t.Parallel()
	idp, srv := newFakeIDP(t)
	client := newTestClient(t, srv)

	grant, err := client.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)

	assert.Equal(t, "initial-token", grant.AccessToken)
	assert.Equal(t, "refresh-token", grant.RefreshToken)
	assert.InDelta(t, time.Hour.Seconds(), grant.Lifetime.Seconds(), 30)
	assert.Equal(t, []string{"authorization_code"}, idp.grantTypes)
}

func TestRefresh(t *testing.T) {
	t.Parallel()
	idp, srv := newFakeIDP(t)
	client := newTestClient(t, srv)

	grant, err := client.Refresh(context.Background(), "refresh-token")
	require.NoError(t, err)

	assert.Equal(t, "refreshed-token", grant.AccessToken)
	assert.Equal(t, []string{"refresh_token"}, idp.grantTypes)
}

func TestExchangeRequiresCode(t *testing.T) {
	t.Parallel()
	_, srv := newFakeIDP(t)
	client := newTestClient(t, srv)

	_, err := client.Exchange(context.Background(), "")
	require.Error(t, err)
}

func TestUserinfo(t *testing.T) {
	t.Parallel()
	_, srv := newFakeIDP(t)
	client := newTestClient(t, srv)

	profile, err := client.Userinfo(context.Background(), "initial-token")
	require.NoError(t, err)
	assert.Equal(t, "12345", profile.ID)
	assert.JSONEq(t, `{"id":"12345","name":"Test User"}`, string(profile.Raw))
}

func TestUserinfoNumericID(t *testing.T) {
	t.Parallel()
	idp, srv := newFakeIDP(t)
	idp.userinfo = map[string]any{"id": 98765}
	client := newTestClient(t, srv)

	profile, err := client.Userinfo(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "98765", profile.ID)
}

func TestUserinfoSubFallback(t *testing.T) {
	t.Parallel()
	idp, srv := newFakeIDP(t)
	idp.userinfo = map[string]any{"sub": "oidc-subject"}
	client := newTestClient(t, srv)

	profile, err := client.Userinfo(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "oidc-subject", profile.ID)
}

func TestUserinfoNoSubject(t *testing.T) {
	t.Parallel()
	idp, srv := newFakeIDP(t)
	idp.userinfo = map[string]any{"name": "No ID"}
	client := newTestClient(t, srv)

	_, err := client.Userinfo(context.Background(), "tok")
	require.ErrorIs(t, err, ErrNoSubject)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := Config{
		ClientID:     "id",
		ClientSecret: "secret",
		AuthURL:      "https://idp.example.com/auth",
		TokenURL:     "https://idp.example.com/token",
		UserinfoURL:  "https://idp.example.com/userinfo",
		RedirectURL:  "https://storage.example.com/login/",
	}
	require.NoError(t, valid.Validate())

	missingSecret := valid
	missingSecret.ClientSecret = ""
	require.Error(t, missingSecret.Validate())

	missingToken := valid
	missingToken.TokenURL = ""
	require.Error(t, missingToken.Validate())
}
