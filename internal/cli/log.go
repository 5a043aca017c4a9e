// Package cli implements the cubectl command-line interface.
//
// cubectl inspects gallery layouts offline (positions, preview) and runs
// the diary server (serve). Log output goes through charmbracelet/log,
// which is also installed as the slog handler so that library packages
// log in the same format.
package cli

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger writing to w at level, with short timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// installLogger makes l the default slog handler.
func installLogger(l *log.Logger) {
	slog.SetDefault(slog.New(l))
}
