// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var manifestFile string

// NewRootCmd creates the root command for the flogin CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flogin",
		Short: "flogin - developer tooling for Flow Launcher plugins",
		Long: `flogin is the developer companion for plugins built on the flogin SDK.
It scaffolds new plugin projects, renders the plugin.json manifest from
flogin.yaml, and validates manifests against the published schema.`,
	}

	// Global flag for the manifest source file
	cmd.PersistentFlags().StringVar(&manifestFile, "file", "flogin.yaml", "manifest source file path")

	// Add subcommands
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewManifestCmd())
	cmd.AddCommand(NewValidateCmd())

	return cmd
}
