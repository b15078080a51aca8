// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config loads and validates the liteauthd configuration from flags
// and LITEAUTH_-prefixed environment variables via viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/stacklok/liteauth/pkg/identity"
	"github.com/stacklok/liteauth/pkg/networking"
	"github.com/stacklok/liteauth/pkg/provider"
	"github.com/stacklok/liteauth/pkg/session"
)

// EnvPrefix is the environment variable prefix, e.g. LITEAUTH_CLIENT_ID.
const EnvPrefix = "LITEAUTH"

// Config is the validated liteauthd configuration.
type Config struct {
	// Address the HTTP server listens on.
	Address string

	// ServiceDomain is the public domain, used for cookie scoping.
	ServiceDomain string

	// ServiceEndpoint is the public base URL advertised to clients.
	// Defaults to https://<ServiceDomain>.
	ServiceEndpoint string

	// StorageURL is the internal storage upstream.
	StorageURL string

	// StorageVersion is the storage API version segment.
	StorageVersion string

	// LoginPath is the login-flow path prefix.
	LoginPath string

	// IdentityPrefix namespaces identities and storage accounts.
	IdentityPrefix string

	// Provider holds the identity provider settings.
	Provider provider.Config

	// Redis holds the session cache settings.
	Redis session.RedisConfig

	// Debug enables debug-level logging.
	Debug bool
}

// SetDefaults registers defaults on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("address", ":8080")
	v.SetDefault("storage-version", "v1")
	v.SetDefault("login-path", "/login/")
	v.SetDefault("identity-prefix", identity.DefaultPrefix)
	v.SetDefault("scopes", []string{"openid", "profile"})
	v.SetDefault("redis-addr", "localhost:6379")
}

// Load reads configuration from the given viper instance.
func Load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	cfg := &Config{
		Address:         v.GetString("address"),
		ServiceDomain:   v.GetString("service-domain"),
		ServiceEndpoint: v.GetString("service-endpoint"),
		StorageURL:      v.GetString("storage-url"),
		StorageVersion:  v.GetString("storage-version"),
		LoginPath:       v.GetString("login-path"),
		IdentityPrefix:  v.GetString("identity-prefix"),
		Provider: provider.Config{
			ClientID:     v.GetString("client-id"),
			ClientSecret: v.GetString("client-secret"),
			AuthURL:      v.GetString("auth-url"),
			TokenURL:     v.GetString("token-url"),
			UserinfoURL:  v.GetString("userinfo-url"),
			Scopes:       v.GetStringSlice("scopes"),
		},
		Redis: session.RedisConfig{
			Addr:     v.GetString("redis-addr"),
			Username: v.GetString("redis-username"),
			Password: v.GetString("redis-password"),
			DB:       v.GetInt("redis-db"),
		},
		Debug: v.GetBool("debug"),
	}

	if err := cfg.complete(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// complete fills derived fields and validates the result.
func (c *Config) complete() error {
	if c.ServiceDomain == "" {
		return errors.New("service domain is required")
	}
	if c.StorageURL == "" {
		return errors.New("storage upstream URL is required")
	}
	if c.ServiceEndpoint == "" {
		c.ServiceEndpoint = fmt.Sprintf("%s://%s", networking.HttpsScheme, c.ServiceDomain)
	}
	c.ServiceEndpoint = strings.TrimSuffix(c.ServiceEndpoint, "/")

	// The redirect URL is always the service's own login endpoint.
	c.Provider.RedirectURL = c.ServiceEndpoint + c.LoginPath

	// The cache key namespace is the identity namespace.
	c.Redis.KeyPrefix = c.IdentityPrefix

	if err := c.Provider.Validate(); err != nil {
		return fmt.Errorf("invalid provider configuration: %w", err)
	}
	return nil
}
