// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/config"
)

// Setup builds the root logger from the configured level and optional
// rotated log file. Console output goes to stderr so pipeline results on
// stdout stay machine-readable.
func Setup(level string, fileCfg config.LogFileConfig) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	if fileCfg.Enabled {
		rotated := &lumberjack.Logger{
			Filename:   fileCfg.Path,
			MaxSize:    fileCfg.MaxSizeMB,
			MaxBackups: fileCfg.MaxBackups,
			MaxAge:     fileCfg.MaxAgeDays,
			Compress:   fileCfg.Compress,
		}
		w = io.MultiWriter(w, rotated)
	}

	logger := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(lvl)
	return logger
}

// Discard returns a logger that writes nowhere, for tests.
func Discard() zerolog.Logger {
	return zerolog.New(io.Discard)
}
