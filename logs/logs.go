// Package logs builds the process logger from config.Log.
package logs

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mnehpets/rpcenvelope/config"
)

// FileName is the log file written when Output is a directory.
const FileName = "rpcserver.log"

// ParseLevel maps debug, info, warn or error (any case) to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, errors.Errorf("logs: unknown level %q", s)
}

// Setup returns a logger for cfg. The returned closer releases the log file,
// if any; it is never nil.
func Setup(cfg config.Log) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	out, closer, err := output(cfg.Output)
	if err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json", "":
		h = slog.NewJSONHandler(out, opts)
	case "text":
		h = slog.NewTextHandler(out, opts)
	default:
		closer.Close()
		return nil, nil, errors.Errorf("logs: unknown format %q", cfg.Format)
	}
	return slog.New(h), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func output(dest string) (io.Writer, io.Closer, error) {
	switch dest {
	case "", "stdout":
		return os.Stdout, nopCloser{}, nil
	case "stderr":
		return os.Stderr, nopCloser{}, nil
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, nil, errors.Wrapf(err, "logs: create %s", dest)
	}
	lj := &lumberjack.Logger{
		Filename:   filepath.Join(dest, FileName),
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	return lj, lj, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
