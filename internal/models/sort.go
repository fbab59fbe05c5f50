// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package models

import "strings"

// SortKey names a catalog ordering.
type SortKey string

// Static sorts can be pushed down to storage. Derived sorts depend on values
// computed per row after the fetch.
const (
	SortTitleAsc          SortKey = "title_asc"
	SortTitleDesc         SortKey = "title_desc"
	SortYearAsc           SortKey = "year_asc"
	SortYearDesc          SortKey = "year_desc"
	SortAddedAtAsc        SortKey = "added_at_asc"
	SortAddedAtDesc       SortKey = "added_at_desc"
	SortRatingAsc         SortKey = "rating_asc"
	SortRatingDesc        SortKey = "rating_desc"
	SortTotalStreamsAsc   SortKey = "total_streams_asc"
	SortTotalStreamsDesc  SortKey = "total_streams_desc"
	SortSeasonEpisodeAsc  SortKey = "season_episode_asc"
	SortSeasonEpisodeDesc SortKey = "season_episode_desc"
)

// DefaultSort is used when no sort or an unknown sort is requested.
const DefaultSort = SortTitleAsc

var knownSorts = map[SortKey]bool{
	SortTitleAsc:          true,
	SortTitleDesc:         true,
	SortYearAsc:           true,
	SortYearDesc:          true,
	SortAddedAtAsc:        true,
	SortAddedAtDesc:       true,
	SortRatingAsc:         true,
	SortRatingDesc:        true,
	SortTotalStreamsAsc:   true,
	SortTotalStreamsDesc:  true,
	SortSeasonEpisodeAsc:  true,
	SortSeasonEpisodeDesc: true,
}

// ParseSortKey normalizes s. The second return is false when s is non-empty
// and unknown; the key is then DefaultSort.
func ParseSortKey(s string) (SortKey, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultSort, true
	}
	// Legacy spellings
	switch s {
	case "title":
		return SortTitleAsc, true
	case "total_streams", "streams":
		return SortTotalStreamsDesc, true
	case "season_episode":
		return SortSeasonEpisodeAsc, true
	}
	key := SortKey(s)
	if knownSorts[key] {
		return key, true
	}
	return DefaultSort, false
}

// IsDerived reports whether the sort needs per-row computation outside storage.
func (k SortKey) IsDerived() bool {
	switch k {
	case SortTotalStreamsAsc, SortTotalStreamsDesc, SortSeasonEpisodeAsc, SortSeasonEpisodeDesc:
		return true
	}
	return false
}

// Descending reports whether the sort is descending.
func (k SortKey) Descending() bool {
	return strings.HasSuffix(string(k), "_desc")
}

// Field returns the key without its direction suffix.
func (k SortKey) Field() string {
	s := string(k)
	if i := strings.LastIndex(s, "_"); i > 0 {
		return s[:i]
	}
	return s
}
