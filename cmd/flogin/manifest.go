// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cibere/flogin/internal/manifest"
)

// NewManifestCmd creates the manifest subcommand.
func NewManifestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Render plugin.json from flogin.yaml",
		Long: `Render the plugin.json manifest Flow Launcher reads from the
flogin.yaml source file. Flags override individual manifest keys,
which is how release pipelines stamp the version.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := manifest.Load(manifestFile, cmd.Flags())
			if err != nil {
				return err
			}
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			if err := m.WriteFile(out); err != nil {
				return err
			}
			cmd.Printf("Wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().String("out", manifest.OutputFileName, "output file path")
	cmd.Flags().String("version", "", "override the manifest version")
	cmd.Flags().String("keyword", "", "override the action keyword")
	cmd.Flags().String("icon", "", "override the icon path")
	cmd.Flags().String("execute", "", "override the executable file name")

	return cmd
}

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [plugin.json]",
		Short: "Validate a plugin.json manifest against the schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := manifest.OutputFileName
			if len(args) == 1 {
				path = args[0]
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if err := manifest.ValidateSchema(data); err != nil {
				cmd.PrintErrf("%s: %s\n", path, manifest.FormatSchemaError(err))
				return err
			}
			cmd.Printf("%s is valid\n", path)
			return nil
		},
	}
}
