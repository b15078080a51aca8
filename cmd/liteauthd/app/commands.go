// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app provides the entry point for the liteauthd command-line application.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/liteauth/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:               "liteauthd",
	DisableAutoGenTag: true,
	Short:             "liteauthd is an authentication gateway for multi-tenant object storage",
	Long: `liteauthd sits in front of a multi-tenant object-storage service. It drives
a federated login flow against an external identity provider, resolves session
tokens to identities through a shared Redis cache, decides whether a caller may
act on an account, container or object, and manages per-account shared-container
ACL documents. Authorized traffic is reverse-proxied to the storage upstream
with identity headers injected.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.Initialize()
	},
}

// NewRootCmd creates a new root command for the liteauthd CLI.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	rootCmd.AddCommand(serveCmd)

	return rootCmd
}
