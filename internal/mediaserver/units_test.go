// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package mediaserver

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mediacatalog/internal/models"
)

func TestDurationConversions(t *testing.T) {
	tests := []struct {
		name string
		got  int
		want int
	}{
		{"millis", MillisToSeconds(8_880_000), 8880},
		{"millis truncates", MillisToSeconds(1_999), 1},
		{"millis negative", MillisToSeconds(-5), 0},
		{"ticks", TicksToSeconds(13_200_000_000), 1320},
		{"ticks zero", TicksToSeconds(0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkIntEqual(t, tt.name, tt.got, tt.want)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in       string
		wantYear int
		wantNil  bool
	}{
		{"2023-01-02T03:04:05Z", 2023, false},
		{"2023-01-02T03:04:05.1234567Z", 2023, false},
		{"2021-06-30T10:00:00", 2021, false},
		{"1999-12-31", 1999, false},
		{"", 0, true},
		{"yesterday", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseTimestamp(tt.in)
			if tt.wantNil {
				checkTrue(t, "nil for "+tt.in, got == nil)
				return
			}
			checkTrue(t, "parsed", got != nil)
			checkIntEqual(t, "year", got.Year(), tt.wantYear)
		})
	}
}

func TestFlexDecoding(t *testing.T) {
	var ids struct {
		A flexID `json:"a"`
		B flexID `json:"b"`
		C flexID `json:"c"`
	}
	checkNoError(t, json.Unmarshal([]byte(`{"a":42,"b":"abc","c":null}`), &ids))
	checkStringEqual(t, "number id", ids.A.String(), "42")
	checkStringEqual(t, "string id", ids.B.String(), "abc")
	checkStringEqual(t, "null id", ids.C.String(), "")

	var ints struct {
		A flexInt `json:"a"`
		B flexInt `json:"b"`
		C flexInt `json:"c"`
	}
	checkNoError(t, json.Unmarshal([]byte(`{"a":"7","b":3.9,"c":12}`), &ints))
	checkIntEqual(t, "quoted", int(ints.A), 7)
	checkIntEqual(t, "float", int(ints.B), 3)
	checkIntEqual(t, "plain", int(ints.C), 12)
}

func TestOptionalPointers(t *testing.T) {
	checkTrue(t, "zero int is unknown", intPtr(0) == nil)
	checkIntPtrEqual(t, "int", intPtr(5), 5)
	checkTrue(t, "zero seconds unknown", secondsPtr(0) == nil)
	checkTrue(t, "zero millis unknown", unixMillis(0) == nil)
	checkTrue(t, "short date", yearFromDate("19") == nil)
	checkIntPtrEqual(t, "year", yearFromDate("2012-03-14"), 2012)
}

func TestContractValidation(t *testing.T) {
	checkTrue(t, "library without key", ValidateLibrary(&models.Library{Name: "x"}) != nil)
	checkTrue(t, "library without name", ValidateLibrary(&models.Library{ID: "1"}) != nil)
	checkTrue(t, "library keyed by external id", ValidateLibrary(&models.Library{ExternalID: "1", Name: "x"}) == nil)
	checkTrue(t, "user without name", ValidateUser(&models.User{ID: "1"}) != nil)
	checkTrue(t, "user ok", ValidateUser(&models.User{ID: "1", Username: "a"}) == nil)
	checkTrue(t, "record without id", ValidateMediaRecord(&models.MediaRecord{Title: "x"}) != nil)
	checkTrue(t, "nil library", ValidateLibrary(nil) != nil)
}

func TestWantsAllLibraries(t *testing.T) {
	checkTrue(t, "nil", wantsAllLibraries(nil))
	checkTrue(t, "wildcard", wantsAllLibraries([]string{"*"}))
	checkTrue(t, "explicit", !wantsAllLibraries([]string{"a"}))
	checkTrue(t, "wildcard with others", !wantsAllLibraries([]string{"*", "a"}))
}
