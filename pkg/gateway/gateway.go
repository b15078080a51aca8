// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package gateway is the request entry point. It resolves session tokens to
// identities, dispatches login-flow and shared-container requests, and
// reverse-proxies everything else to the storage upstream with identity
// headers injected and the authorization hook registered.
package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/stacklok/liteauth/pkg/authz"
	"github.com/stacklok/liteauth/pkg/identity"
	"github.com/stacklok/liteauth/pkg/logger"
	"github.com/stacklok/liteauth/pkg/provider"
	"github.com/stacklok/liteauth/pkg/session"
	"github.com/stacklok/liteauth/pkg/share"
	"github.com/stacklok/liteauth/pkg/storage"
)

// Defaults for optional Config fields.
const (
	DefaultLoginPath      = "/login/"
	DefaultStorageVersion = "v1"
)

// Config holds the gateway's request-dispatch settings.
type Config struct {
	// ServiceDomain is the public domain the session cookie is scoped to.
	ServiceDomain string

	// ServiceEndpoint is the public base URL of the service, advertised to
	// clients in X-Storage-Url after login.
	ServiceEndpoint string

	// StorageURL is the internal storage upstream requests are proxied to.
	StorageURL string

	// StorageVersion is the storage API version segment (default "v1").
	StorageVersion string

	// LoginPath is the login-flow path prefix (default "/login/").
	LoginPath string

	// IdentityPrefix namespaces identities derived from provider user IDs.
	IdentityPrefix string
}

func (c *Config) validate() error {
	if c.ServiceDomain == "" {
		return errors.New("service domain is required")
	}
	if c.ServiceEndpoint == "" {
		return errors.New("service endpoint is required")
	}
	if c.StorageURL == "" {
		return errors.New("storage upstream URL is required")
	}
	if c.StorageVersion == "" {
		c.StorageVersion = DefaultStorageVersion
	}
	if c.LoginPath == "" {
		c.LoginPath = DefaultLoginPath
	}
	if c.IdentityPrefix == "" {
		c.IdentityPrefix = identity.DefaultPrefix
	}
	return nil
}

// Gateway dispatches inbound requests. All collaborators are injected at
// construction; the gateway holds no mutable state of its own.
type Gateway struct {
	cfg        Config
	cache      session.Cache
	idp        *provider.Client
	storage    *storage.Client
	authorizer *authz.Authorizer
	shares     *share.Manager
	proxy      *httputil.ReverseProxy
}

// NewGateway creates a Gateway. Every collaborator is required; a gateway
// without a session cache cannot authenticate and must not start.
func NewGateway(
	cfg Config,
	cache session.Cache,
	idp *provider.Client,
	st *storage.Client,
	az *authz.Authorizer,
	shares *share.Manager,
) (*Gateway, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid gateway config: %w", err)
	}
	if cache == nil {
		return nil, errors.New("session cache is required")
	}
	if idp == nil {
		return nil, errors.New("identity provider client is required")
	}
	if st == nil {
		return nil, errors.New("storage client is required")
	}
	if az == nil {
		return nil, errors.New("authorizer is required")
	}
	if shares == nil {
		return nil, errors.New("share manager is required")
	}

	target, err := url.Parse(cfg.StorageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid storage upstream URL: %w", err)
	}

	return &Gateway{
		cfg:        cfg,
		cache:      cache,
		idp:        idp,
		storage:    st,
		authorizer: az,
		shares:     shares,
		proxy: &httputil.ReverseProxy{
			Rewrite: func(pr *httputil.ProxyRequest) {
				pr.SetURL(target)
				pr.SetXForwarded()
			},
			ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
				logger.Errorw("storage upstream unreachable", "path", r.URL.Path, "error", err)
				w.WriteHeader(http.StatusBadGateway)
			},
		},
	}, nil
}

var _ http.Handler = (*Gateway)(nil)

// ServeHTTP performs the per-request dispatch: login flow, anonymous
// pass-through, token resolution, shared-container delegation, or forwarding
// with identity headers.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, g.cfg.LoginPath) {
		g.handleLogin(w, r)
		return
	}

	token, ok := session.TokenFromRequest(r)
	if !ok {
		// Anonymous requests still flow downstream; the decision engine
		// denies them unless the resource is public.
		g.forward(w, r, "", "")
		return
	}

	caller, found, err := g.cache.Get(r.Context(), token)
	if err != nil {
		logger.Errorw("session token lookup failed", "error", err)
		http.Error(w, "authentication unavailable", http.StatusBadGateway)
		return
	}
	if !found {
		http.Error(w, "invalid or expired session", http.StatusUnauthorized)
		return
	}

	if strings.HasPrefix(r.URL.Path, share.PathPrefix) {
		g.shares.Handle(w, r, caller)
		return
	}

	g.forward(w, r, caller, token)
}

// forward proxies the request to the storage upstream. Authenticated callers
// get the bearer header rewritten to "identity,token" so downstream layers
// can recover both; the authorization callback is registered either way.
func (g *Gateway) forward(w http.ResponseWriter, r *http.Request, caller identity.Identity, token string) {
	ctx := r.Context()
	if !caller.Anonymous() {
		bearer := caller.String() + "," + token
		r.Header.Set("X-Auth-Token", bearer)
		r.Header.Set("X-Storage-Token", bearer)
		ctx = identity.WithIdentity(ctx, caller)
	}
	ctx = authz.WithCallback(ctx, g.authorizeCallback(r, caller))
	g.proxy.ServeHTTP(w, r.WithContext(ctx))
}

// authorizeCallback binds the request target and caller now; the downstream
// pipeline supplies the container ACL when it invokes the callback.
func (g *Gateway) authorizeCallback(r *http.Request, caller identity.Identity) authz.Callback {
	_, account, container, object, pathErr := authz.SplitStoragePath(r.URL.Path)
	method := r.Method
	execute := r.Header.Get(authz.ExecuteHeader) != ""

	return func(acl []string) authz.Decision {
		if pathErr != nil {
			authz.PathErrorsTotal.Inc()
			reason := authz.ReasonForbidden
			if caller.Anonymous() {
				reason = authz.ReasonUnauthorized
			}
			return authz.Decision{Reason: reason}
		}
		return g.authorizer.Decide(authz.Context{
			Account:   account,
			Container: container,
			Object:    object,
			Method:    method,
			Caller:    caller,
			ACL:       acl,
			Execute:   execute,
		})
	}
}
