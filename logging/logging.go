// Package logging builds the structured loggers used across restgpt.
// Loggers are constructed explicitly and passed down; nothing here keeps
// package-level state.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

type Options struct {
	Level     string
	Prefix    string
	Timestamp bool
}

// New returns a logger writing to w. An unparsable level falls back to info.
func New(w io.Writer, opts Options) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	level, err := log.ParseLevel(opts.Level)
	if err != nil {
		level = log.InfoLevel
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "restgpt"
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          prefix,
		ReportTimestamp: opts.Timestamp,
	})
}

// Discard returns a logger that drops everything, for tests and embedding.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
