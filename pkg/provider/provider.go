// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package provider implements the client side of the identity provider's
// OAuth 2.0 surface: the authorization redirect, the code and refresh token
// exchanges, and the user-info lookup.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/stacklok/liteauth/pkg/networking"
)

// maxResponseSize bounds provider responses read into memory.
const maxResponseSize = 1 << 20 // 1MB

// DefaultTokenLifetime is used when the provider omits expires_in.
const DefaultTokenLifetime = time.Hour

// ErrNoSubject is returned when the user-info response carries no user ID.
// The provider authenticated the caller but the identity is unresolvable.
var ErrNoSubject = errors.New("user-info response carries no user ID")

// Config contains the settings for one identity provider.
type Config struct {
	// ClientID and ClientSecret are the credentials registered with the provider.
	ClientID     string
	ClientSecret string

	// AuthURL, TokenURL and UserinfoURL are the provider endpoints.
	AuthURL     string
	TokenURL    string
	UserinfoURL string

	// RedirectURL is the service's login endpoint, echoed on every exchange.
	RedirectURL string

	// Scopes requested during authorization.
	Scopes []string
}

// Validate checks that the config has all required fields.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return errors.New("client ID is required")
	}
	if c.ClientSecret == "" {
		return errors.New("client secret is required")
	}
	if c.AuthURL == "" {
		return errors.New("authorization URL is required")
	}
	if c.TokenURL == "" {
		return errors.New("token URL is required")
	}
	if c.UserinfoURL == "" {
		return errors.New("user-info URL is required")
	}
	if c.RedirectURL == "" {
		return errors.New("redirect URL is required")
	}
	return nil
}

// Grant is the outcome of a token exchange.
type Grant struct {
	AccessToken  string
	RefreshToken string

	// Lifetime is the provider-reported validity of the access token.
	Lifetime time.Duration
}

// Profile is the provider's description of the authenticated user.
type Profile struct {
	// ID is the provider's opaque user identifier.
	ID string

	// Raw is the unmodified user-info payload, stored verbatim as account
	// metadata on first login.
	Raw json.RawMessage
}

// Client drives OAuth flows against one identity provider.
type Client struct {
	cfg          Config
	oauth2Config *oauth2.Config
	httpClient   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client, e.g. with a private CA bundle.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a provider client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provider config: %w", err)
	}

	c := &Client{
		cfg: cfg,
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
				// Send client credentials in the request body (not the Basic
				// auth header) for consistent behavior across IDPs.
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		hc, err := networking.NewHttpClientBuilder().Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build HTTP client: %w", err)
		}
		c.httpClient = hc
	}

	return c, nil
}

// AuthCodeURL builds the provider's authorization endpoint URL. The state is
// the caller-supplied opaque value echoed back on completion; access_type
// offline asks the provider to issue a refresh token.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for an access token.
func (c *Client) Exchange(ctx context.Context, code string) (*Grant, error) {
	if code == "" {
		return nil, errors.New("authorization code is required")
	}

	tok, err := c.oauth2Config.Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	return grantFromToken(tok), nil
}

// Refresh trades a refresh token for a fresh access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Grant, error) {
	if refreshToken == "" {
		return nil, errors.New("refresh token is required")
	}

	src := c.oauth2Config.TokenSource(c.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return grantFromToken(tok), nil
}

// Userinfo fetches the provider's description of the token holder.
func (c *Client) Userinfo(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user-info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user-info request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read user-info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user-info request returned status %d", resp.StatusCode)
	}

	id, err := subjectFromUserinfo(body)
	if err != nil {
		return nil, err
	}

	return &Profile{ID: id, Raw: body}, nil
}

// withHTTPClient injects the configured HTTP client into the context for
// golang.org/x/oauth2 to pick up.
func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func grantFromToken(tok *oauth2.Token) *Grant {
	lifetime := DefaultTokenLifetime
	if !tok.Expiry.IsZero() {
		if until := time.Until(tok.Expiry); until > 0 {
			lifetime = until
		}
	}
	return &Grant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Lifetime:     lifetime,
	}
}

// subjectFromUserinfo pulls the user ID out of a user-info payload. Some
// providers report it as "id", OIDC-flavored ones as "sub"; numeric IDs are
// normalized to their decimal string form.
func subjectFromUserinfo(body []byte) (string, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to parse user-info response: %w", err)
	}

	for _, field := range []string{"id", "sub"} {
		raw, ok := payload[field]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s, nil
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil && n.String() != "" {
			return n.String(), nil
		}
	}

	return "", ErrNoSubject
}
