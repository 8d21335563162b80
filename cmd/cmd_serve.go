// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/jcodagnone/distill/server"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	pipelineFlags

	Addr string
}

var serveOpts = &serveOptions{}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the distillation API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := serveOpts.loadConfig(cmd)
		if err != nil {
			return err
		}

		db, repo, err := openRepository(false)
		if err != nil {
			return err
		}
		defer db.Close()

		return server.NewServer(repo, cfg).Run(serveOpts.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveOpts.register(serveCmd)
	serveCmd.Flags().StringVar(&serveOpts.Addr, "addr", "localhost:8080", "Address to listen on")
}
