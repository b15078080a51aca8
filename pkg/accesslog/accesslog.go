// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package accesslog emits one structured record per completed login-flow
// request. Records are immutable values built at request completion, not
// attributes bolted onto the request.
package accesslog

import (
	"net/http"
	"strings"
	"time"

	"github.com/stacklok/liteauth/pkg/logger"
)

// Record describes one completed request.
type Record struct {
	Client     string
	RemoteAddr string
	Method     string
	Request    string
	Proto      string
	Status     int
	Referer    string
	UserAgent  string
	TransID    string
	Elapsed    time.Duration
}

// NewRecord builds a Record for a finished request.
func NewRecord(r *http.Request, status int, transID string, elapsed time.Duration) Record {
	request := r.URL.Path
	if r.URL.RawQuery != "" {
		request += "?" + r.URL.RawQuery
	}
	return Record{
		Client:     clientIP(r),
		RemoteAddr: r.RemoteAddr,
		Method:     r.Method,
		Request:    request,
		Proto:      r.Proto,
		Status:     status,
		Referer:    r.Referer(),
		UserAgent:  r.UserAgent(),
		TransID:    transID,
		Elapsed:    elapsed,
	}
}

// Emit writes the record through the structured logger.
func Emit(rec Record) {
	logger.Infow("request completed",
		"client", orDash(rec.Client),
		"remote_addr", orDash(rec.RemoteAddr),
		"method", rec.Method,
		"request", rec.Request,
		"proto", rec.Proto,
		"status", rec.Status,
		"referer", orDash(rec.Referer),
		"user_agent", orDash(rec.UserAgent),
		"trans_id", orDash(rec.TransID),
		"elapsed_ms", rec.Elapsed.Milliseconds(),
	)
}

// clientIP resolves the originating client: the cluster LB header first,
// then the first X-Forwarded-For entry.
func clientIP(r *http.Request) string {
	if client := r.Header.Get("X-Cluster-Client-Ip"); client != "" {
		return client
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	return ""
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
