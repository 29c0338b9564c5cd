// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

package flow

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// AppSettings is a read-only snapshot of Flow's own Settings.json.
type AppSettings map[string]any

// AppSettingsPath returns the host settings file location relative to the
// plugin's working directory, which the host sets to the plugin directory.
func AppSettingsPath() string {
	return filepath.Join("..", "..", "Settings", "Settings.json")
}

// LoadAppSettings reads and decodes the host settings file at path. An empty
// path uses AppSettingsPath. The host rewrites Settings.json in place, so
// reads retry briefly to step over partial writes.
func LoadAppSettings(ctx context.Context, path string) (AppSettings, error) {
	if path == "" {
		path = AppSettingsPath()
	}

	var settings AppSettings

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(50*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return retry.RetryableError(err)
		}
		if err := json.Unmarshal(data, &settings); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, oops.Code("FLOW_SETTINGS_LOAD_FAILED").With("path", path).Wrap(err)
	}
	return settings, nil
}

// Get returns the setting under key, or def when absent.
func (s AppSettings) Get(key string, def any) any {
	if v, ok := s[key]; ok {
		return v
	}
	return def
}
