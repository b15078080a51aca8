// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login flow outcomes.
const (
	loginOutcomeStarted   = "started"
	loginOutcomeCompleted = "completed"
	loginOutcomeFailed    = "failed"
	loginOutcomeLogout    = "logout"
)

var loginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "liteauth_logins_total",
		Help: "Login flow requests by outcome (started, completed, failed, logout).",
	},
	[]string{"outcome"},
)
