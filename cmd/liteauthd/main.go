// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the liteauthd gateway.
package main

import (
	"os"

	"github.com/stacklok/liteauth/cmd/liteauthd/app"
	"github.com/stacklok/liteauth/pkg/logger"
)

func main() {
	// Initialize the logger
	logger.Initialize()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
