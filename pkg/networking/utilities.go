// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package networking

import (
	"net"
	"strings"
)

// IsLocalhost returns true for hosts that resolve to the local machine:
// "localhost" (optionally with a port or subdomain-free prefix) and
// loopback IP literals. Browsers reject cookie domain attributes on such
// hosts, so the session cookie codec consults this before setting one.
func IsLocalhost(host string) bool {
	if host == "" {
		return false
	}

	// Strip a port if present. SplitHostPort fails for bare hosts.
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	if strings.HasPrefix(host, "localhost") {
		return true
	}

	if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil {
		return ip.IsLoopback()
	}

	return false
}
