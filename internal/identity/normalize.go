// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package identity

import (
	"strings"

	"github.com/tomtom215/mediacatalog/internal/models"
)

// UnknownLibraryPrefix prefixes the display name of ids that match no library.
const UnknownLibraryPrefix = "Unknown Lib "

// allLibrariesLabel is the display name for unrestricted access.
const allLibrariesLabel = "All Libraries"

// UsesCompoundIDs reports whether the service keys access lists by
// "{id}_{name}" instead of the bare external id.
func UsesCompoundIDs(st models.ServiceType) bool {
	return st == models.ServiceKavita
}

// LibraryKey returns the key an access list of st uses for lib.
func LibraryKey(st models.ServiceType, lib *models.MediaLibrary) string {
	if UsesCompoundIDs(st) {
		if _, _, ok := DecodeCompound(lib.ExternalID); ok {
			return lib.ExternalID
		}
		return EncodeCompound(lib.ExternalID, lib.Name)
	}
	return lib.ExternalID
}

// Result is the outcome of normalizing an access list.
type Result struct {
	// IDs is the normalized list in selection order, without duplicates.
	IDs []string
	// Unresolved lists entries that match no known library. They are kept
	// verbatim in IDs.
	Unresolved []string
	// Changed is true when IDs differs from the input.
	Changed bool
}

// Normalize maps a library selection to the canonical keys of st.
//
// For compound-id services every entry is rewritten to compound form: a
// compound key that still exists is kept, otherwise the entry is matched
// by numeric id and then by name. Entries that match nothing are preserved.
// For other services entries are kept as-is and only checked for existence.
// The wildcard marker always passes through.
func Normalize(st models.ServiceType, selection []string, libraries []models.MediaLibrary) Result {
	res := Result{IDs: make([]string, 0, len(selection))}
	if len(selection) == 0 {
		return res
	}

	byKey := make(map[string]string, len(libraries))
	byID := make(map[string]string, len(libraries))
	byName := make(map[string]string, len(libraries))
	for i := range libraries {
		key := LibraryKey(st, &libraries[i])
		byKey[key] = key
		id := libraries[i].ExternalID
		if cid, _, ok := DecodeCompound(id); ok {
			id = cid
		}
		byID[id] = key
		if name := strings.ToLower(strings.TrimSpace(libraries[i].Name)); name != "" {
			if _, dup := byName[name]; !dup {
				byName[name] = key
			}
		}
	}

	seen := make(map[string]bool, len(selection))
	add := func(id string) {
		if seen[id] {
			res.Changed = true
			return
		}
		seen[id] = true
		res.IDs = append(res.IDs, id)
	}

	for _, raw := range selection {
		entry := strings.TrimSpace(raw)
		if entry != raw {
			res.Changed = true
		}
		if entry == "" {
			res.Changed = true
			continue
		}
		if entry == models.WildcardLibraryID {
			add(entry)
			continue
		}

		if key, ok := byKey[entry]; ok {
			add(key)
			continue
		}

		if !UsesCompoundIDs(st) {
			res.Unresolved = append(res.Unresolved, entry)
			add(entry)
			continue
		}

		if key, ok := resolveCompound(entry, byID, byName); ok {
			if key != entry {
				res.Changed = true
			}
			add(key)
			continue
		}
		res.Unresolved = append(res.Unresolved, entry)
		add(entry)
	}
	return res
}

// resolveCompound matches a stale compound key, a bare id or a bare name.
func resolveCompound(entry string, byID, byName map[string]string) (string, bool) {
	if id, name, ok := DecodeCompound(entry); ok {
		if key, ok := byID[id]; ok {
			return key, true
		}
		if key, ok := byName[strings.ToLower(name)]; ok {
			return key, true
		}
		return "", false
	}
	if isNumeric(entry) {
		key, ok := byID[entry]
		return key, ok
	}
	key, ok := byName[strings.ToLower(entry)]
	return key, ok
}

// IsAllLibraries reports whether ids grants unrestricted access. Both the
// empty list and the wildcard marker qualify for every service.
func IsAllLibraries(_ models.ServiceType, ids []string) bool {
	if len(ids) == 0 {
		return true
	}
	for _, id := range ids {
		if strings.TrimSpace(id) != "" {
			return models.IsWildcard(ids)
		}
	}
	return true
}

// AllLibrariesMarker returns the list a service stores for unrestricted
// access: ["*"] for Jellyfin, an empty list for everything else.
func AllLibrariesMarker(st models.ServiceType) []string {
	if st == models.ServiceJellyfin {
		return []string{models.WildcardLibraryID}
	}
	return []string{}
}

// Access is an expanded access grant.
type Access struct {
	All        bool
	Libraries  []models.MediaLibrary
	Unresolved []string
}

// ExpandAccess resolves an access list against the known libraries. An
// all-libraries marker expands to every library and never to "no access".
func ExpandAccess(st models.ServiceType, libraryIDs []string, libraries []models.MediaLibrary) Access {
	if IsAllLibraries(st, libraryIDs) {
		libs := make([]models.MediaLibrary, len(libraries))
		copy(libs, libraries)
		return Access{All: true, Libraries: libs}
	}

	norm := Normalize(st, libraryIDs, libraries)
	index := make(map[string]int, len(libraries))
	for i := range libraries {
		index[LibraryKey(st, &libraries[i])] = i
	}

	out := Access{Libraries: make([]models.MediaLibrary, 0, len(norm.IDs))}
	for _, id := range norm.IDs {
		if i, ok := index[id]; ok {
			out.Libraries = append(out.Libraries, libraries[i])
		}
	}
	out.Unresolved = norm.Unresolved
	return out
}

// DisplayNames renders an access list for admin views. Compound keys for
// libraries that no longer exist still decode to their name; anything else
// unknown becomes "Unknown Lib {id}" and is returned in unresolved.
func DisplayNames(st models.ServiceType, libraryIDs []string, libraries []models.MediaLibrary) (names, unresolved []string) {
	if IsAllLibraries(st, libraryIDs) {
		return []string{allLibrariesLabel}, nil
	}

	norm := Normalize(st, libraryIDs, libraries)
	nameOf := make(map[string]string, len(libraries))
	for i := range libraries {
		nameOf[LibraryKey(st, &libraries[i])] = libraries[i].Name
	}

	names = make([]string, 0, len(norm.IDs))
	for _, id := range norm.IDs {
		if name, ok := nameOf[id]; ok {
			names = append(names, name)
			continue
		}
		unresolved = append(unresolved, id)
		if _, name, ok := DecodeCompound(id); ok && name != "" {
			names = append(names, name)
			continue
		}
		names = append(names, UnknownLibraryPrefix+id)
	}
	return names, unresolved
}
