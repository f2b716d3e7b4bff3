package util

import (
	"log/slog"
	"os"
)

// InitSlog points the default logger at stderr with the level named by
// the LOG_LEVEL environment variable (debug, info, warn, error). With
// LOG_LEVEL unset nothing changes; an unparseable value falls back to
// info rather than failing the command.
func InitSlog() {
	name, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		return
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
