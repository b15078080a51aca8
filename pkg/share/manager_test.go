// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package share

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/liteauth/pkg/identity"
	"github.com/stacklok/liteauth/pkg/storage"
)

// fakeStorage serves the account metadata interface: HEAD returns the
// current shared document, POST records the update.
type fakeStorage struct {
	t          *testing.T
	shared     string
	meta       map[string]string
	headStatus int
	postStatus int

	posted http.Header
}

func newFakeStorage(t *testing.T) (*fakeStorage, *storage.Client) {
	t.Helper()
	fs := &fakeStorage{
		t:          t,
		headStatus: http.StatusNoContent,
		postStatus: http.StatusAccepted,
		meta:       map[string]string{},
	}
	srv := httptest.NewServer(fs)
	t.Cleanup(srv.Close)

	client, err := storage.NewClient(srv.URL, "v1", srv.Client())
	require.NoError(t, err)
	return fs, client
}

func (f *fakeStorage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodHead:
		if f.shared != "" {
			w.Header().Set(storage.SharedHeader, f.shared)
		}
		for k, v := range f.meta {
			w.Header().Set(k, v)
		}
		w.WriteHeader(f.headStatus)
	case http.MethodPost:
		f.posted = r.Header.Clone()
		w.Header().Set("X-Trans-Id", "tx-123")
		w.WriteHeader(f.postStatus)
		_, _ = w.Write([]byte("storage says hi"))
	default:
		f.t.Errorf("unexpected method %s", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func handle(t *testing.T, m *Manager, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	m.Handle(w, r, identity.Identity("g_42"))
	return w
}

func TestManagerAdd(t *testing.T) {
	t.Parallel()
	fs, client := newFakeStorage(t)
	m := NewManager(client)

	w := handle(t, m, "/share/load/g_1/photos")

	// The storage response is relayed unchanged.
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "tx-123", w.Header().Get("X-Trans-Id"))
	assert.Equal(t, "storage says hi", w.Body.String())

	updated := ParseDocument(fs.posted.Get(storage.SharedHeader))
	assert.True(t, updated.Shared(Key{Account: "g_1", Container: "photos"}))
}

func TestManagerAddPreservesExistingMeta(t *testing.T) {
	t.Parallel()
	fs, client := newFakeStorage(t)
	fs.shared = `{"g_9/old":"shared"}`
	fs.meta["X-Account-Meta-Quota"] = "100"
	m := NewManager(client)

	handle(t, m, "/share/load/g_1/photos")

	updated := ParseDocument(fs.posted.Get(storage.SharedHeader))
	assert.True(t, updated.Shared(Key{Account: "g_9", Container: "old"}))
	assert.True(t, updated.Shared(Key{Account: "g_1", Container: "photos"}))
	assert.Equal(t, "100", fs.posted.Get("X-Account-Meta-Quota"))
}

func TestManagerDrop(t *testing.T) {
	t.Parallel()
	fs, client := newFakeStorage(t)
	fs.shared = `{"g_1/photos":"shared"}`
	m := NewManager(client)

	handle(t, m, "/share/drop/g_1/photos")

	updated := ParseDocument(fs.posted.Get(storage.SharedHeader))
	assert.False(t, updated.Shared(Key{Account: "g_1", Container: "photos"}))
}

func TestManagerDropAbsentKeySucceeds(t *testing.T) {
	t.Parallel()
	fs, client := newFakeStorage(t)
	m := NewManager(client)

	w := handle(t, m, "/share/drop/g_1/never-shared")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "{}", fs.posted.Get(storage.SharedHeader))
}

func TestManagerCorruptDocumentSelfHeals(t *testing.T) {
	t.Parallel()
	fs, client := newFakeStorage(t)
	fs.shared = "{corrupt"
	m := NewManager(client)

	w := handle(t, m, "/share/load/g_1/photos")
	assert.Equal(t, http.StatusAccepted, w.Code)

	updated := ParseDocument(fs.posted.Get(storage.SharedHeader))
	assert.True(t, updated.Shared(Key{Account: "g_1", Container: "photos"}))
	assert.Len(t, updated, 1)
}

func TestManagerUnknownOperation(t *testing.T) {
	t.Parallel()
	_, client := newFakeStorage(t)
	m := NewManager(client)

	w := handle(t, m, "/share/purge/g_1/photos")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestManagerMissingContainerSegment(t *testing.T) {
	t.Parallel()
	_, client := newFakeStorage(t)
	m := NewManager(client)

	w := handle(t, m, "/share/load/g_1")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestManagerAccountHeadFailure(t *testing.T) {
	t.Parallel()
	fs, client := newFakeStorage(t)
	fs.headStatus = http.StatusNotFound
	m := NewManager(client)

	w := handle(t, m, "/share/load/g_1/photos")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
