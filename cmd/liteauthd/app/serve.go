// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/liteauth/pkg/authz"
	"github.com/stacklok/liteauth/pkg/config"
	"github.com/stacklok/liteauth/pkg/gateway"
	"github.com/stacklok/liteauth/pkg/logger"
	"github.com/stacklok/liteauth/pkg/networking"
	"github.com/stacklok/liteauth/pkg/provider"
	"github.com/stacklok/liteauth/pkg/session"
	"github.com/stacklok/liteauth/pkg/share"
	"github.com/stacklok/liteauth/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the authentication gateway",
	Long: `Start the authentication gateway. The gateway serves the login flow, the
shared-container endpoint and /metrics, and proxies everything else to the
storage upstream.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second
	serverReadTimeout      = 30 * time.Second
	// Object uploads and downloads stream through the proxy, so the write
	// timeout stays generous.
	serverWriteTimeout = 5 * time.Minute
	serverIdleTimeout  = 60 * time.Second
)

func init() {
	serveCmd.Flags().String("address", ":8080", "Address to listen on")
	serveCmd.Flags().String("service-domain", "", "Public domain of the service (cookie scope)")
	serveCmd.Flags().String("service-endpoint", "", "Public base URL (default https://<service-domain>)")
	serveCmd.Flags().String("storage-url", "", "Internal storage upstream URL")
	serveCmd.Flags().String("client-id", "", "OAuth client ID")
	serveCmd.Flags().String("client-secret", "", "OAuth client secret")
	serveCmd.Flags().String("auth-url", "", "Identity provider authorization endpoint")
	serveCmd.Flags().String("token-url", "", "Identity provider token endpoint")
	serveCmd.Flags().String("userinfo-url", "", "Identity provider user-info endpoint")
	serveCmd.Flags().String("redis-addr", "localhost:6379", "Redis address for the session cache")
	serveCmd.Flags().String("redis-password", "", "Redis password")
	serveCmd.Flags().String("identity-prefix", "g_", "Identity namespace prefix")

	for _, name := range []string{
		"address", "service-domain", "service-endpoint", "storage-url",
		"client-id", "client-secret", "auth-url", "token-url", "userinfo-url",
		"redis-addr", "redis-password", "identity-prefix",
	} {
		if err := viper.BindPFlag(name, serveCmd.Flags().Lookup(name)); err != nil {
			logger.Fatalf("Failed to bind %s flag: %v", name, err)
		}
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// An unreachable session cache is a deployment error; refuse to start
	// rather than serve unauthenticated traffic.
	cache, err := session.NewRedisCache(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("session cache unavailable: %w", err)
	}
	defer func() { _ = cache.Close() }()

	httpClient, err := networking.NewHttpClientBuilder().Build()
	if err != nil {
		return fmt.Errorf("failed to build HTTP client: %w", err)
	}

	idp, err := provider.NewClient(cfg.Provider)
	if err != nil {
		return fmt.Errorf("failed to create identity provider client: %w", err)
	}

	storageClient, err := storage.NewClient(cfg.StorageURL, cfg.StorageVersion, httpClient)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}

	gw, err := gateway.NewGateway(
		gateway.Config{
			ServiceDomain:   cfg.ServiceDomain,
			ServiceEndpoint: cfg.ServiceEndpoint,
			StorageURL:      cfg.StorageURL,
			StorageVersion:  cfg.StorageVersion,
			LoginPath:       cfg.LoginPath,
			IdentityPrefix:  cfg.IdentityPrefix,
		},
		cache,
		idp,
		storageClient,
		authz.NewAuthorizer(cfg.IdentityPrefix),
		share.NewManager(storageClient),
	)
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	router.Handle("/*", gw)

	server := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	go func() {
		logger.Infof("Gateway listening on %s", cfg.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
		return err
	}

	logger.Info("Server shutdown complete")
	return nil
}
