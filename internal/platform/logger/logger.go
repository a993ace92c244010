package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Text output to stdout;
// the log pipeline handles shipping and parsing.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
