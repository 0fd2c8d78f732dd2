// Package util holds small helpers shared by every binary.
package util

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger builds a zerolog logger at the requested level writing to stdout.
func NewLogger(level string) zerolog.Logger {
	return newLogger(level, os.Stdout)
}

// NewFileLogger builds a logger that tees output to stdout and the given file.
// If the file cannot be opened the logger falls back to stdout only.
func NewFileLogger(level, path string) zerolog.Logger {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return newLogger(level, os.Stdout)
	}
	return newLogger(level, zerolog.MultiLevelWriter(os.Stdout, file))
}

func newLogger(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}
