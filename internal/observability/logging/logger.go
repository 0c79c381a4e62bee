package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// NewJSONLogger writes JSON records for the named process to stdout.
func NewJSONLogger(service, level string) *slog.Logger {
	return NewLogger(os.Stdout, service, level)
}

// NewLogger tags every record with the process name and pid and stamps
// times in UTC.
func NewLogger(w io.Writer, service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: utcTime,
	})
	return slog.New(handler).With(
		slog.String("service", service),
		slog.Int("pid", os.Getpid()),
	)
}

func utcTime(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) == 0 && attr.Key == slog.TimeKey && attr.Value.Kind() == slog.KindTime {
		attr.Value = slog.TimeValue(attr.Value.Time().UTC().Truncate(time.Millisecond))
	}
	return attr
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
