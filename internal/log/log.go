package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	mu       sync.RWMutex
	logger   *slog.Logger
	minLevel = new(slog.LevelVar)
	initOnce sync.Once
)

// initLogger installs the default text handler on stderr.
func initLogger() {
	initOnce.Do(func() {
		minLevel.Set(slog.LevelInfo)
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: minLevel}))
	})
}

// SetOutput redirects log lines to w. Tests use it to capture output.
func SetOutput(w io.Writer) {
	initLogger()
	mu.Lock()
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: minLevel}))
	mu.Unlock()
}

func SetLevel(l Level) {
	initLogger()
	minLevel.Set(l.slog())
}

// ParseLevel converts "debug", "info", "warn" or "error" (any case) to a
// Level. Unknown strings map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Debug(msg string, kv ...any) {
	current().Debug(msg, kv...)
}

func Info(msg string, kv ...any) {
	current().Info(msg, kv...)
}

func Warn(msg string, kv ...any) {
	current().Warn(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// err always comes first so it lines up across call sites.
	extended := append([]any{"err", err}, kv...)
	current().Error(msg, extended...)
}

func current() *slog.Logger {
	initLogger()
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
