// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package mediaserver

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ticksPerSecond is the number of 100-ns ticks in one second (Jellyfin/Emby).
const ticksPerSecond = 10_000_000

// MillisToSeconds converts a Plex millisecond duration to whole seconds.
func MillisToSeconds(ms int64) int {
	if ms <= 0 {
		return 0
	}
	return int(ms / 1000)
}

// TicksToSeconds converts a Jellyfin/Emby 100-ns tick count to whole seconds.
func TicksToSeconds(ticks int64) int {
	if ticks <= 0 {
		return 0
	}
	return int(ticks / ticksPerSecond)
}

// secondsPtr returns nil for non-positive durations so "unknown" stays NULL.
func secondsPtr(seconds int) *int {
	if seconds <= 0 {
		return nil
	}
	return &seconds
}

// unixSeconds converts a unix timestamp in seconds. Zero means unknown.
func unixSeconds(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// unixMillis converts a unix timestamp in milliseconds. Zero means unknown.
func unixMillis(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

// parseTimestamp accepts RFC3339 with or without fractional seconds and a
// bare date. Unparseable input yields nil.
func parseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// yearFromDate extracts the year of a date-like string ("2019-05-01...").
func yearFromDate(s string) *int {
	if len(s) < 4 {
		return nil
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil || y <= 0 {
		return nil
	}
	return &y
}

func intPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func floatPtr(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}

// flexID decodes an identifier that some services send as a number and
// others as a string.
type flexID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	*f = flexID(string(data))
	return nil
}

func (f flexID) String() string {
	return string(f)
}

// flexInt decodes an integer that may arrive quoted or as a float.
type flexInt int64

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if n, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*f = flexInt(n)
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = flexInt(int64(v))
	return nil
}

// rawJSON re-encodes a decoded payload for storage as extra metadata. Payloads
// that fail to encode are dropped rather than failing the record.
func rawJSON(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
