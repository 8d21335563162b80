// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})

	cobra.OnInitialize(initEnv)

	rootCmd.PersistentFlags().StringVar(
		&options.ConfigPath,
		"config",
		"",
		"YAML pipeline description. Defaults to harmonic and acceleration per DM trial, then DM",
	)
	rootCmd.PersistentFlags().StringVar(
		&options.DbPath,
		"db-path",
		"db",
		"Directory holding the candidates database",
	)
}

// initEnv loads a .env file from the working directory, if there is one.
func initEnv() {
	_ = godotenv.Load()
}

var rootCmd = &cobra.Command{
	Use:   "distill",
	Short: "collapse re-detections of the same pulsar candidate",
	Long: `
distill reads the candidate lists produced by a periodicity search and keeps a
single representative for every cluster of re-detections of the same signal:
harmonics, neighbouring acceleration and DM trials, and overlapping orbital or
polynomial templates.
`,
	SilenceUsage: true,
}

var Version = "dev"

func Execute(version string) {
	Version = version
	rootCmd.Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
