// SPDX-License-Identifier: Unlicense OR MIT

// Package log builds the structured loggers used by the event loop.
package log

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = log.WarnLevel

// New returns a logger writing to w at the named level. An empty level
// selects DefaultLevel.
func New(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		Prefix:          "xevloop",
	})
	return l, nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// ParseLevel parses a level name, ignoring case and surrounding space.
// An empty name selects DefaultLevel. Unknown names return an error
// wrapping log.ErrInvalidLevel.
func ParseLevel(level string) (log.Level, error) {
	level = strings.TrimSpace(level)
	if level == "" {
		return DefaultLevel, nil
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return DefaultLevel, fmt.Errorf("log: %w", err)
	}
	return lvl, nil
}
