// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

// Package manifest models the plugin.json manifest that Flow Launcher
// reads to discover a plugin, plus the flogin.yaml source file it is
// rendered from.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// SourceFileName is the YAML file a plugin author edits.
const SourceFileName = "flogin.yaml"

// OutputFileName is the manifest file Flow Launcher reads.
const OutputFileName = "plugin.json"

// Manifest represents a plugin.json file. The JSON tags follow the
// PascalCase key convention Flow Launcher expects; the koanf tags map
// the lowercase keys used in flogin.yaml.
type Manifest struct {
	ID              string   `json:"ID"                        koanf:"id"`
	Name            string   `json:"Name"                      koanf:"name"`
	Description     string   `json:"Description"               koanf:"description"`
	Author          string   `json:"Author"                    koanf:"author"`
	Version         string   `json:"Version"                   koanf:"version"`
	Language        string   `json:"Language"                  koanf:"language"`
	Website         string   `json:"Website,omitempty"         koanf:"website"`
	IcoPath         string   `json:"IcoPath"                   koanf:"icon"`
	ExecuteFileName string   `json:"ExecuteFileName"           koanf:"execute"`
	ActionKeyword   string   `json:"ActionKeyword,omitempty"   koanf:"keyword"`
	ActionKeywords  []string `json:"ActionKeywords,omitempty"  koanf:"keywords"`
}

// maxNameLength is the maximum allowed length for plugin names.
const maxNameLength = 64

// idPattern validates plugin ids. Flow Launcher uses GUID-style ids,
// optionally without hyphens.
var idPattern = regexp.MustCompile(`^[0-9a-fA-F-]{32,36}$`)

// Load reads flogin.yaml from path and overlays any flags the user set
// on the command line. Flag names mirror the YAML keys, so
// --version overrides version, --keyword overrides keyword, and so on.
func Load(path string, flags *pflag.FlagSet) (*Manifest, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("apply flag overrides: %w", err)
		}
	}

	var m Manifest
	if err := k.Unmarshal("", &m); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.ID == "" || !idPattern.MatchString(m.ID) {
		return fmt.Errorf("id %q must be a GUID", m.ID)
	}
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(m.Name) > maxNameLength {
		return fmt.Errorf("name must be %d characters or less, got %d", maxNameLength, len(m.Name))
	}
	if m.Author == "" {
		return fmt.Errorf("author is required")
	}
	if m.Version == "" {
		return fmt.Errorf("version is required")
	}
	if _, err := semver.NewVersion(m.Version); err != nil {
		return fmt.Errorf("version %q is not a valid semantic version: %w", m.Version, err)
	}
	if m.ExecuteFileName == "" {
		return fmt.Errorf("execute is required")
	}
	if m.ActionKeyword != "" && len(m.ActionKeywords) > 0 {
		return fmt.Errorf("keyword and keywords are mutually exclusive")
	}
	if m.Language == "" {
		m.Language = "executable"
	}
	return nil
}

// Keywords returns the effective action keyword list, falling back to
// the global "*" keyword when none is configured.
func (m *Manifest) Keywords() []string {
	if len(m.ActionKeywords) > 0 {
		return m.ActionKeywords
	}
	if m.ActionKeyword != "" {
		return []string{m.ActionKeyword}
	}
	return []string{"*"}
}

// Render serializes the manifest to the plugin.json wire form.
func (m *Manifest) Render() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteFile renders the manifest and writes it to path.
func (m *Manifest) WriteFile(path string) error {
	data, err := m.Render()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
