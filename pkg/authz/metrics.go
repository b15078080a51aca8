// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package authz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const outcomeGranted = "granted"

var (
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liteauth_authz_decisions_total",
			Help: "Authorization decisions by outcome (granted, forbidden, unauthorized).",
		},
		[]string{"outcome"},
	)

	// PathErrorsTotal counts requests whose target path could not be parsed.
	PathErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "liteauth_authz_path_errors_total",
			Help: "Requests rejected because the storage path was malformed.",
		},
	)
)
