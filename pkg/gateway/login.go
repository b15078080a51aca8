// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/stacklok/liteauth/pkg/accesslog"
	"github.com/stacklok/liteauth/pkg/identity"
	"github.com/stacklok/liteauth/pkg/logger"
	"github.com/stacklok/liteauth/pkg/session"
	"github.com/stacklok/liteauth/pkg/storage"
)

// LogoutMarker flags a login completion as a logout request when it appears
// in the code parameter.
const LogoutMarker = "logout"

// handleLogin serves the login-flow endpoint. Every login-path request gets
// one access-log record at completion.
func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	transID := middleware.GetReqID(r.Context())
	if transID == "" {
		transID = uuid.NewString()
	}
	rec.Header().Set("X-Trans-Id", transID)

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	switch {
	case code == "":
		g.beginLogin(rec, r, state)
	case strings.Contains(code, LogoutMarker):
		g.logout(rec, r, state)
	default:
		g.completeLogin(rec, r, code, state)
	}

	accesslog.Emit(accesslog.NewRecord(r, rec.status, transID, time.Since(start)))
}

// beginLogin redirects the browser to the identity provider's authorization
// endpoint. The caller-supplied state is echoed back on completion.
func (g *Gateway) beginLogin(w http.ResponseWriter, r *http.Request, state string) {
	loginsTotal.WithLabelValues(loginOutcomeStarted).Inc()
	http.Redirect(w, r, g.idp.AuthCodeURL(state), http.StatusFound)
}

// logout deletes the cached session entry for the cookie token, if any, and
// clears the cookie. A missing cookie still completes as a logout.
func (g *Gateway) logout(w http.ResponseWriter, r *http.Request, state string) {
	if token, ok := session.TokenFromRequest(r); ok {
		if err := g.cache.Delete(r.Context(), token); err != nil {
			logger.Errorw("failed to delete session on logout", "error", err)
		}
	}
	loginsTotal.WithLabelValues(loginOutcomeLogout).Inc()
	http.SetCookie(w, session.ClearCookie(g.cfg.ServiceDomain))
	http.Redirect(w, r, redirectTarget(state, LogoutMarker), http.StatusFound)
}

// completeLogin finishes the authorization-code flow: exchange the code,
// normalize through a refresh exchange when a refresh token was granted,
// resolve the provider user, cache the session, verify the account exists
// and issue the session cookie.
func (g *Gateway) completeLogin(w http.ResponseWriter, r *http.Request, code, state string) {
	ctx := r.Context()

	grant, err := g.idp.Exchange(ctx, code)
	if err != nil {
		logger.Warnw("authorization code exchange failed", "error", err)
		g.loginError(w, http.StatusUnauthorized, "code exchange failed")
		return
	}

	// When the provider grants a refresh token, the refresh exchange's
	// access token is canonical. This folds long-lived and short-lived
	// provider grants into one code path.
	if grant.RefreshToken != "" {
		grant, err = g.idp.Refresh(ctx, grant.RefreshToken)
		if err != nil {
			logger.Warnw("refresh token exchange failed", "error", err)
			g.loginError(w, http.StatusUnauthorized, "token refresh failed")
			return
		}
	}
	if grant.AccessToken == "" {
		g.loginError(w, http.StatusUnauthorized, "provider issued no access token")
		return
	}

	profile, err := g.idp.Userinfo(ctx, grant.AccessToken)
	if err != nil {
		logger.Warnw("user-info lookup failed", "error", err)
		g.loginError(w, http.StatusForbidden, "identity unresolvable")
		return
	}

	caller, err := identity.New(g.cfg.IdentityPrefix, profile.ID)
	if err != nil {
		g.loginError(w, http.StatusForbidden, "identity unresolvable")
		return
	}

	if err := g.cache.Put(ctx, grant.AccessToken, caller, grant.Lifetime); err != nil {
		logger.Errorw("failed to cache session token", "error", err)
		g.loginError(w, http.StatusInternalServerError, "session could not be established")
		return
	}

	meta, err := g.storage.AccountMeta(ctx, caller.Account())
	if err != nil {
		logger.Warnw("account check failed", "account", caller.Account(), "error", err)
		g.loginError(w, http.StatusNotFound, "account not found")
		return
	}

	if meta.Get(storage.UserdataHeader) == "" {
		g.enrollUserdata(r, caller, meta, profile.Raw)
	}

	loginsTotal.WithLabelValues(loginOutcomeCompleted).Inc()

	bearer := caller.String() + "," + grant.AccessToken
	w.Header().Set("X-Auth-Token", bearer)
	w.Header().Set("X-Storage-Token", bearer)
	w.Header().Set("X-Storage-Url", g.storageURL(caller))
	http.SetCookie(w, session.NewCookie(grant.AccessToken, g.cfg.ServiceDomain, grant.Lifetime))
	http.Redirect(w, r, redirectTarget(state, caller.String()), http.StatusFound)
}

// enrollUserdata writes the provider's user-info payload into the account
// metadata on first login. The payload is compacted first: providers
// pretty-print user-info responses, and header values cannot carry newlines.
// Failure is logged, not surfaced: the session is already established and
// the enrichment retries on the next fresh login.
func (g *Gateway) enrollUserdata(r *http.Request, caller identity.Identity, meta http.Header, raw []byte) {
	var userdata bytes.Buffer
	if err := json.Compact(&userdata, raw); err != nil {
		logger.Warnw("failed to encode account userdata", "account", caller.Account(), "error", err)
		return
	}

	update := http.Header{}
	storage.CopyAccountMeta(meta, update)
	update.Set(storage.UserdataHeader, userdata.String())

	resp, err := g.storage.PostAccountMeta(r.Context(), caller.Account(), update)
	if err != nil {
		logger.Warnw("failed to store account userdata", "account", caller.Account(), "error", err)
		return
	}
	_ = resp.Body.Close()
}

func (g *Gateway) loginError(w http.ResponseWriter, status int, msg string) {
	loginsTotal.WithLabelValues(loginOutcomeFailed).Inc()
	http.Error(w, msg, status)
}

// storageURL is the account-scoped storage endpoint advertised after login.
func (g *Gateway) storageURL(caller identity.Identity) string {
	return fmt.Sprintf("%s/%s/%s",
		strings.TrimSuffix(g.cfg.ServiceEndpoint, "/"), g.cfg.StorageVersion, caller.Account())
}

// redirectTarget builds the post-login redirect "<state-or-root>?account=...".
func redirectTarget(state, account string) string {
	if state == "" {
		state = "/"
	}
	return state + "?account=" + url.QueryEscape(account)
}

// statusRecorder captures the response status for access logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}
