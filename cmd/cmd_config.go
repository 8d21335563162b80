// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the pipeline configuration",
}

var configFlags = &pipelineFlags{}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective pipeline configuration as YAML",
	Long: `Prints the pipeline that run and serve would use, after applying the
configuration file, the DISTILL_* environment variables and the flags. The
output is a valid --config file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := configFlags.loadConfig(cmd)
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)

		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("encoding configuration: %w", err)
		}

		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configFlags.register(configShowCmd)
}
