package obs

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// NewLogger writes to stdout. Dev and local environments get tint's coloured
// output; everything else logs JSON. level accepts slog level names and
// defaults to debug in dev and info elsewhere.
func NewLogger(env, level string) *slog.Logger {
	return newLogger(os.Stdout, env, level)
}

func newLogger(w io.Writer, env, level string) *slog.Logger {
	dev := env == "dev" || env == "local"
	lvl := parseLevel(level, dev)
	var handler slog.Handler
	if dev {
		handler = tint.NewHandler(w, &tint.Options{Level: lvl, TimeFormat: time.TimeOnly, AddSource: true})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: true})
	}
	return slog.New(handler).With("service", "sawa", "env", env)
}

func parseLevel(raw string, dev bool) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(raw))); err == nil {
		return lvl
	}
	if dev {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
