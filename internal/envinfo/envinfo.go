// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

// Package envinfo reads the environment variables the host sets when it
// spawns a plugin process.
package envinfo

import (
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
)

// Environment variables set by the host.
const (
	EnvFlowVersion      = "FLOW_VERSION"
	EnvApplicationDir   = "FLOW_APPLICATION_DIRECTORY"
	EnvProgramDirectory = "FLOW_PROGRAM_DIRECTORY"
)

// NotSetError is returned when a host-provided environment variable is
// missing, which usually means the plugin is running outside the host.
type NotSetError struct {
	Name string
}

func (e *NotSetError) Error() string {
	return fmt.Sprintf("environment variable %s is not set; is the plugin running under the host?", e.Name)
}

func get(name string) (string, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", &NotSetError{Name: name}
	}
	return v, nil
}

// RawVersion returns the host version string, or "unknown" outside the host.
func RawVersion() string {
	v, err := get(EnvFlowVersion)
	if err != nil {
		return "unknown"
	}
	return v
}

// Version parses the host version.
func Version() (*semver.Version, error) {
	raw, err := get(EnvFlowVersion)
	if err != nil {
		return nil, err
	}
	v, err := semver.NewVersion(strings.TrimPrefix(raw, "v"))
	if err != nil {
		return nil, oops.Code("BAD_FLOW_VERSION").With("raw", raw).Wrap(err)
	}
	return v, nil
}

// ApplicationDirectory returns the host's application directory.
func ApplicationDirectory() (string, error) {
	return get(EnvApplicationDir)
}

// ProgramDirectory returns the host's program directory.
func ProgramDirectory() (string, error) {
	return get(EnvProgramDirectory)
}
