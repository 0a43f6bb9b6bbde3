package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/billbatista/acasinha-trip/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds a JSON logger writing to out and, when cfg.LogFile is set, to a
// rotated log file. The returned closer releases the file.
func New(cfg config.Config, out io.Writer) (*slog.Logger, io.Closer) {
	writers := []io.Writer{out}
	var closer io.Closer = nopCloser{}
	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			LocalTime:  true,
		}
		writers = append(writers, file)
		closer = file
	}

	h := slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})
	return slog.New(h), closer
}

// Init installs the logger as the slog default.
func Init(cfg config.Config) io.Closer {
	l, closer := New(cfg, os.Stdout)
	slog.SetDefault(l)
	slog.Info("logger initialized", "level", cfg.LogLevel, "file", cfg.LogFile)
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
