// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package share manages the per-account shared-container ACL document.
package share

import (
	"encoding/json"
	"fmt"
	"strings"
)

// State records why a container appears in the document.
type State string

// StateShared marks a container as explicitly shared.
const StateShared State = "shared"

// Key identifies a container within an account.
type Key struct {
	Account   string
	Container string
}

// String renders the key in its serialized "<account>/<container>" form.
func (k Key) String() string {
	return k.Account + "/" + k.Container
}

// parseKey splits a serialized key. The container keeps embedded slashes.
func parseKey(s string) (Key, error) {
	account, container, ok := strings.Cut(s, "/")
	if !ok || account == "" || container == "" {
		return Key{}, fmt.Errorf("malformed shared-container key %q", s)
	}
	return Key{Account: account, Container: container}, nil
}

// Document maps shared containers to their sharing state. Keys are unique
// and unordered; absence of a key means "not shared". The document is
// serialized as JSON only at the account metadata boundary.
type Document map[Key]State

// Add marks a container as shared.
func (d Document) Add(k Key) {
	d[k] = StateShared
}

// Remove unmarks a container. Removing an absent key is a no-op.
func (d Document) Remove(k Key) {
	delete(d, k)
}

// Shared reports whether the container is marked shared.
func (d Document) Shared(k Key) bool {
	_, ok := d[k]
	return ok
}

// MarshalJSON serializes the document as a flat JSON object keyed by
// "<account>/<container>".
func (d Document) MarshalJSON() ([]byte, error) {
	flat := make(map[string]State, len(d))
	for k, v := range d {
		flat[k.String()] = v
	}
	return json.Marshal(flat)
}

// UnmarshalJSON parses the flat JSON form back into typed keys.
func (d *Document) UnmarshalJSON(data []byte) error {
	var flat map[string]State
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	doc := make(Document, len(flat))
	for s, v := range flat {
		k, err := parseKey(s)
		if err != nil {
			return err
		}
		doc[k] = v
	}
	*d = doc
	return nil
}

// ParseDocument decodes a serialized document. Absence or corruption yields
// an empty document, never an error: corrupt persisted state is self-healing
// on the next write.
func ParseDocument(raw string) Document {
	if raw == "" {
		return Document{}
	}
	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Document{}
	}
	return doc
}

// Encode serializes the document for storage in the account metadata header.
func (d Document) Encode() (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to encode shared-container document: %w", err)
	}
	return string(data), nil
}
