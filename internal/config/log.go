package config

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// NewLogger creates a timestamped logger writing to w with the level taken
// from FABRIC_LOG_LEVEL (default info).
func NewLogger(w io.Writer, prefix string) (*log.Logger, error) {
	level, err := log.ParseLevel(GetEnv("FABRIC_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("FABRIC_LOG_LEVEL: %w", err)
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
		Level:           level,
	}), nil
}

// LogOutput returns where a full-screen binary should log: the file named
// by FABRIC_LOG_FILE, or io.Discard when unset. The returned closer must be
// called on exit.
func LogOutput() (io.Writer, func() error, error) {
	path := GetEnv("FABRIC_LOG_FILE", "")
	if path == "" {
		return io.Discard, func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
