// Package logging builds the process logger.
//
// All components log through zerolog. Output goes to stderr by default so
// stdout stays reserved for transform results.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Supported log formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// New returns a logger writing to w at the named level. Format "text"
// renders human-readable console lines; "json" writes one object per line.
// A nil w selects os.Stderr.
func New(level, format string, w io.Writer) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	switch strings.ToLower(format) {
	case FormatJSON, "":
	case FormatText:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: !isTerminal(w)}
	default:
		return zerolog.Nop(), fmt.Errorf("unsupported log format %q (expected json or text)", format)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// ParseLevel accepts debug, info, warn or error.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unsupported log level %q (expected debug, info, warn or error)", level)
	}
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() zerolog.Logger {
	return zerolog.Nop()
}
