// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

var Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// LogFileOptions configures rotation of the optional log file.
type LogFileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// InitLogger initializes the global logger.
// Set CLIVE_DEBUG=1 to enable debug logging.
// With a non-empty file path, records go to a rotating file instead of stdout
// and the returned closer closes that file. Otherwise the closer is nil.
func InitLogger(file LogFileOptions) io.Closer {
	level := slog.LevelInfo
	if os.Getenv("CLIVE_DEBUG") != "" {
		level = slog.LevelDebug
	}

	if file.Path != "" {
		rotator := &lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			MaxAge:     file.MaxAgeDays,
			Compress:   true,
		}
		Logger = slog.New(slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: level}))
		return rotator
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
		// Drop time and level for cleaner CLI output
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	})
	Logger = slog.New(handler)
	return nil
}

// Debug logs a debug message (only shown when CLIVE_DEBUG is set)
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Warn logs a warning.
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}
