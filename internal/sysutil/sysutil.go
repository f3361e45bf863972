// Package sysutil holds process-level helpers shared by the CLI commands.
package sysutil

import (
	"strings"

	"github.com/rs/zerolog"
)

// SetLogLevel sets the global zerolog level from a name and returns it.
// Unknown or empty names fall back to info; "warning" is accepted for warn.
func SetLogLevel(lvl string) zerolog.Level {
	var l zerolog.Level
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		l = zerolog.DebugLevel
	case "warn", "warning":
		l = zerolog.WarnLevel
	case "error":
		l = zerolog.ErrorLevel
	case "fatal":
		l = zerolog.FatalLevel
	case "panic":
		l = zerolog.PanicLevel
	default:
		l = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(l)
	return l
}

// FirstNonEmpty returns the first value that is not blank, unmodified.
// Flags use it to override configuration only when set.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
