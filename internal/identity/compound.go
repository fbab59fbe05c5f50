// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package identity

import (
	"strconv"
	"strings"
)

// EncodeCompound builds the "{id}_{name}" key Kavita access lists use.
func EncodeCompound(id, name string) string {
	return id + "_" + name
}

// DecodeCompound splits a compound key on its first underscore. The prefix
// must be numeric; names may themselves contain underscores.
func DecodeCompound(s string) (id, name string, ok bool) {
	i := strings.IndexByte(s, '_')
	if i <= 0 {
		return "", "", false
	}
	id, name = s[:i], s[i+1:]
	if !isNumeric(id) {
		return "", "", false
	}
	return id, name, true
}

// IsCompound reports whether s decodes as a compound key.
func IsCompound(s string) bool {
	_, _, ok := DecodeCompound(s)
	return ok
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}
