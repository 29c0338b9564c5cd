// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

package errutil_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cibere/flogin/pkg/errutil"
)

func TestLogError_WithCodedError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("SETTINGS_LOAD_FAILED").
		With("path", "Settings.json").
		Errorf("read failed")

	errutil.LogError(logger, "settings unavailable", err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "settings unavailable", entry["msg"])
	assert.Equal(t, "SETTINGS_LOAD_FAILED", entry["code"])

	ctx, ok := entry["context"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Settings.json", ctx["path"])
}

func TestLogError_WithPlainError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogError(logger, "operation failed", errors.New("plain failure"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Contains(t, entry["err"], "plain failure")
	assert.NotContains(t, entry, "code")
}
