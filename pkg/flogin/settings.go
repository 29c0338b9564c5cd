// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

package flogin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Settings is the plugin's key/value settings store mirrored from the host.
// Writes accumulate in a changelog that is drained into the next query
// response's settingsChange field, which is how changes reach the host.
type Settings struct {
	mu       sync.Mutex
	data     map[string]any
	changes  map[string]any
	noUpdate bool
}

func newSettings(data map[string]any, noUpdate bool) *Settings {
	if data == nil {
		data = make(map[string]any)
	}
	return &Settings{
		data:     data,
		changes:  make(map[string]any),
		noUpdate: noUpdate,
	}
}

// Get returns the setting under key, or def when absent.
func (s *Settings) Get(key string, def any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data[key]; ok {
		return v
	}
	return def
}

// Set records a new value for key. The change is pushed to the host with the
// next query response.
func (s *Settings) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	s.changes[key] = value
}

// Keys lists every known setting key.
func (s *Settings) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// popChanges drains the changelog accumulated since the last call.
func (s *Settings) popChanges() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	changes := s.changes
	s.changes = make(map[string]any)
	return changes
}

// update replaces the snapshot with a fresh one from the host, unless the
// store was created with updates disabled.
func (s *Settings) update(snapshot map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.noUpdate || snapshot == nil {
		return
	}
	s.data = snapshot
}

// PluginSettingsPath returns the host-managed settings file for the named
// plugin, relative to the plugin's working directory.
func PluginSettingsPath(pluginName string) string {
	return filepath.Join("..", "..", "Settings", "Plugins", pluginName, "Settings.json")
}

// LoadSettingsFile reads and decodes a plugin settings file. Reads are
// retried with backoff because the host may be rewriting the file while we
// read it.
func LoadSettingsFile(ctx context.Context, path string) (map[string]any, error) {
	var data map[string]any

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(50*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		raw, err := os.ReadFile(path)
		if err != nil {
			return retry.RetryableError(err)
		}
		if err := json.Unmarshal(raw, &data); err != nil {
			// Likely a partial write; retry gets the settled file.
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, oops.Code("SETTINGS_LOAD_FAILED").With("path", path).Wrap(err)
	}
	return data, nil
}
