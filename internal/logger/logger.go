package logger

import (
	"io"
	"log/slog"
	"os"
)

// Logger starts as the slog default so packages can log before Init runs
// (tests, early startup failures).
var Logger = slog.Default()

// Init installs a text handler on stdout. DEBUG=true enables debug level.
func Init() {
	InitWithWriter(os.Stdout, os.Getenv("DEBUG") == "true")
}

func InitWithWriter(w io.Writer, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	Logger = slog.New(slog.NewTextHandler(w, opts))
	slog.SetDefault(Logger)
}

func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}
