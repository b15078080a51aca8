// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package share

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/stacklok/liteauth/pkg/identity"
	"github.com/stacklok/liteauth/pkg/logger"
	"github.com/stacklok/liteauth/pkg/storage"
)

// Path prefix and operations of the shared-container endpoint.
const (
	PathPrefix = "/share/"

	// OpAdd and OpRemove are the operation path segments.
	OpAdd    = "load"
	OpRemove = "drop"
)

// Manager applies shared-container mutations to the caller's account
// metadata. The document always lives on the authenticated caller's own
// account, regardless of which account the path names.
type Manager struct {
	storage *storage.Client
}

// NewManager creates a Manager on the given storage client.
func NewManager(st *storage.Client) *Manager {
	return &Manager{storage: st}
}

// splitSharePath parses "<prefix><op>/<account>/<container>". The container
// keeps embedded slashes and is required: a document entry without a
// container names nothing sharable.
func splitSharePath(path string) (op string, key Key, err error) {
	rest := strings.TrimPrefix(path, PathPrefix)
	if rest == path {
		return "", Key{}, errors.New("not a share path")
	}

	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", Key{}, errors.New("share path needs operation, account and container")
	}
	if parts[0] != OpAdd && parts[0] != OpRemove {
		return "", Key{}, errors.New("unknown share operation")
	}
	return parts[0], Key{Account: parts[1], Container: strings.TrimSuffix(parts[2], "/")}, nil
}

// Handle processes one shared-container request for an authenticated
// caller. The storage layer's response to the metadata update is relayed to
// the client unchanged; this manager never invents its own success response.
//
// The read-modify-write on the document has no transactional guarantee: two
// concurrent mutations on the same account race and the last write wins on
// the whole document. The consumed storage interface offers no conditional
// update to do better.
func (m *Manager) Handle(w http.ResponseWriter, r *http.Request, caller identity.Identity) {
	op, key, err := splitSharePath(r.URL.Path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	meta, err := m.storage.AccountMeta(r.Context(), caller.Account())
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	doc := ParseDocument(meta.Get(storage.SharedHeader))
	switch op {
	case OpAdd:
		doc.Add(key)
	case OpRemove:
		doc.Remove(key)
	}

	encoded, err := doc.Encode()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	update := http.Header{}
	storage.CopyAccountMeta(meta, update)
	update.Set(storage.SharedHeader, encoded)

	resp, err := m.storage.PostAccountMeta(r.Context(), caller.Account(), update)
	if err != nil {
		logger.Errorw("shared-container metadata update failed",
			"account", caller.Account(),
			"operation", op,
			"error", err,
		)
		http.Error(w, "storage metadata update failed", http.StatusBadGateway)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	relayResponse(w, resp)
}

// relayResponse streams the storage layer's response back to the client.
func relayResponse(w http.ResponseWriter, resp *http.Response) {
	for name, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.Debugw("failed to relay storage response body", "error", err)
	}
}
