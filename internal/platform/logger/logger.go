package logger

import (
	"log/slog"
	"os"
)

// New returns the root structured logger. JSON on stdout so log shippers can
// parse it without per-line configuration.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
