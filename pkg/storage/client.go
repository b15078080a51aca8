// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package storage is the client for the object-storage service's account
// metadata interface. The gateway only reads and writes account metadata
// here; object traffic is reverse-proxied without interpretation.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Account metadata headers the gateway interprets.
const (
	// MetaPrefix marks account metadata headers; all of them are carried
	// forward verbatim on metadata updates.
	MetaPrefix = "X-Account-Meta-"

	// SharedHeader holds the shared-container ACL document.
	SharedHeader = "X-Account-Meta-Shared"

	// UserdataHeader holds the provider user-info payload written on first
	// login.
	UserdataHeader = "X-Account-Meta-Userdata"
)

// ErrAccountNotFound is returned when the storage layer does not know the
// account.
var ErrAccountNotFound = errors.New("account not found")

// Client talks to the storage service's account endpoints.
type Client struct {
	baseURL    string
	version    string
	httpClient *http.Client
}

// NewClient creates a storage client for the given service base URL and API
// version (e.g. "v1").
func NewClient(baseURL, version string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("storage base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid storage base URL: %w", err)
	}
	if version == "" {
		return nil, errors.New("storage API version is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		version:    version,
		httpClient: httpClient,
	}, nil
}

// AccountPath returns the request path for an account.
func (c *Client) AccountPath(account string) string {
	return fmt.Sprintf("/%s/%s", c.version, account)
}

// accountURL returns the absolute URL for an account.
func (c *Client) accountURL(account string) string {
	return c.baseURL + c.AccountPath(account)
}

// AccountMeta fetches the account's metadata headers via HEAD. A non-2xx
// response means the account is unknown to the storage layer.
func (c *Client) AccountMeta(ctx context.Context, account string) (http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.accountURL(account), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create account HEAD request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("account HEAD request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrAccountNotFound, resp.StatusCode)
	}
	return resp.Header, nil
}

// PostAccountMeta issues a metadata update for the account with the given
// headers. The response is returned unread so the caller can relay it; the
// caller owns closing the body.
func (c *Client) PostAccountMeta(ctx context.Context, account string, headers http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.accountURL(account), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create account POST request: %w", err)
	}
	for name, values := range headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("account POST request failed: %w", err)
	}
	return resp, nil
}

// CopyAccountMeta copies every account metadata header from src to dst,
// so that a metadata POST carries the pre-existing fields forward verbatim.
func CopyAccountMeta(src, dst http.Header) {
	for name, values := range src {
		if !strings.HasPrefix(http.CanonicalHeaderKey(name), MetaPrefix) {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}
