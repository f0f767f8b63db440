// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

package server

import (
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// setupLogger configures the global slog logger. Audit events from the auth
// flows (login_failed, reset_token_issued, ...) go through this logger, so it
// is installed before any store is opened.
func setupLogger(level, format string) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{Level: logLevel})
	}

	slog.SetDefault(slog.New(handler))
}
