// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

package main

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cibere/flogin/internal/manifest"
)

const manifestTemplate = `# flogin.yaml is the source of truth for plugin.json.
# Render it with: flogin manifest
id: %s
name: %s
description: A Flow Launcher plugin
author: you
version: 0.1.0
language: executable
icon: assets/icon.png
execute: %s
keyword: "*"
`

const mainTemplate = `package main

import (
	"context"

	"github.com/cibere/flogin/pkg/flogin"
)

func main() {
	p := flogin.New(flogin.Options{})
	p.RegisterSearchHandler(flogin.NewSearchHandler(nil, func(ctx context.Context, q *flogin.Query) (flogin.Outcome, error) {
		return flogin.One("Hello from " + q.Text()), nil
	}))
	p.Run(context.Background())
}
`

// NewInitCmd creates the init subcommand.
func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <name>",
		Short: "Scaffold a new plugin project",
		Long: `Scaffold a new plugin project directory containing a flogin.yaml
manifest source, a minimal main.go, and a rendered plugin.json.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := os.MkdirAll(name, 0o750); err != nil {
				return fmt.Errorf("create project directory: %w", err)
			}

			src := fmt.Sprintf(manifestTemplate, newManifestID(), name, name)

			yamlPath := filepath.Join(name, manifest.SourceFileName)
			if err := writeIfAbsent(yamlPath, []byte(src)); err != nil {
				return err
			}
			if err := writeIfAbsent(filepath.Join(name, "main.go"), []byte(mainTemplate)); err != nil {
				return err
			}

			cmd.Printf("Scaffolded %s\n", name)
			return nil
		},
	}
}

// newManifestID generates a random GUID for a fresh manifest.
func newManifestID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

// writeIfAbsent writes data to path unless the file already exists.
// init never clobbers files the author may have edited.
func writeIfAbsent(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
