// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

// Package errutil provides helpers for logging and asserting on coded
// errors.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err through logger, flattening the code and context of a
// coded error into structured attributes so plugin log files stay
// greppable. Plain errors log as a single attribute.
func LogError(logger *slog.Logger, msg string, err error) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.Error(msg, "err", err)
		return
	}

	attrs := []any{"err", oopsErr.Error()}
	if code := oopsErr.Code(); code != "" {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	logger.Error(msg, attrs...)
}
