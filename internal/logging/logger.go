// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

// Package logging provides the zerolog logger shared by every catalog component.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Msg("Server starting")
//	logging.Error().Err(err).Str("server_id", id).Msg("Reconcile failed")
//	logging.Ctx(ctx).Debug().Str("library_id", id).Msg("Serving from cache")
//
// Reconciler and adapter code should prefer WithServer so that every line
// carries server_id and service_type. Always terminate chains with Msg or Send.
package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// appName is attached to every line as the "app" field.
const appName = "mediacatalog"

// Config holds logging configuration.
type Config struct {
	// Level is trace, debug, info, warn, error or disabled. Unknown values fall back to info.
	Level string
	// Format is json or console.
	Format string
	// Caller adds file:line to every entry.
	Caller bool
	// Timestamp adds a "time" field.
	Timestamp bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns JSON output at info level with timestamps.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Timestamp: true, Output: os.Stderr}
}

var global atomic.Pointer[zerolog.Logger]

//nolint:gochecknoinits // logging must work before Init is called
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.MessageFieldName = "message"
	Init(DefaultConfig())
}

// Init replaces the global logger. Safe to call repeatedly and concurrently
// with logging calls.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	lc := zerolog.New(out).With().Str("app", appName)
	if cfg.Timestamp {
		lc = lc.Timestamp()
	}
	if cfg.Caller {
		lc = lc.Caller()
	}
	SetLogger(lc.Logger())
}

// parseLevel accepts zerolog level names plus "warning".
func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	if level == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Logger returns a copy of the global logger.
func Logger() zerolog.Logger {
	return *global.Load()
}

// SetLogger replaces the global logger. Tests use it with NewTestLogger.
//
//nolint:gocritic // zerolog.Logger is passed by value
func SetLogger(l zerolog.Logger) {
	global.Store(&l)
}

// Debug starts a debug level entry.
func Debug() *zerolog.Event { return global.Load().Debug() }

// Info starts an info level entry.
func Info() *zerolog.Event { return global.Load().Info() }

// Warn starts a warn level entry.
func Warn() *zerolog.Event { return global.Load().Warn() }

// Error starts an error level entry.
func Error() *zerolog.Event { return global.Load().Error() }

// Err starts an error level entry with err attached, or an info entry when err is nil.
func Err(err error) *zerolog.Event { return global.Load().Err(err) }

// NewTestLogger writes uncolored JSON to w.
//
//	var buf bytes.Buffer
//	logging.SetLogger(logging.NewTestLogger(&buf))
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
