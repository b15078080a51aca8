// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package authz

import (
	"errors"
	"strings"
)

// ErrBadPath is returned for storage paths that cannot be split into
// version/account/container/object segments.
var ErrBadPath = errors.New("malformed storage path")

// SplitStoragePath parses a storage request path of the form
// /<version>/<account>[/<container>[/<object>]]. The object segment keeps
// any embedded slashes. Missing trailing segments come back empty.
func SplitStoragePath(path string) (version, account, container, object string, err error) {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return "", "", "", "", ErrBadPath
	}

	segs := strings.SplitN(trimmed, "/", 4)
	for i, seg := range segs {
		// Empty interior segments (double slashes) are malformed; a single
		// trailing empty segment is just a trailing slash.
		if seg == "" && i != len(segs)-1 {
			return "", "", "", "", ErrBadPath
		}
	}

	version = segs[0]
	if len(segs) > 1 {
		account = segs[1]
	}
	if len(segs) > 2 {
		container = segs[2]
	}
	if len(segs) > 3 {
		object = segs[3]
	}
	return version, account, container, object, nil
}
