// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/fatih/color"
	"github.com/jcodagnone/distill/candidate"
	"github.com/jcodagnone/distill/distill"
	"github.com/spf13/cobra"
)

const dbFile = "distill.duckdb"

// Options are the flags shared by every command.
type Options struct {
	ConfigPath string
	DbPath     string
}

var options = &Options{}

// pipelineFlags override the loaded configuration when set.
type pipelineFlags struct {
	tobs        float64
	maxProcs    int
	keepRelated bool
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.tobs, "tobs", distill.DefaultTObs, "Observation length in seconds, for acceleration stages")
	cmd.Flags().IntVar(&f.maxProcs, "max-procs", 0, "Max number of goroutines for per_dm stages. Defaults to the number of CPUs")
	cmd.Flags().BoolVar(&f.keepRelated, "keep-related", true, "Record the absorbed candidates of every representative")
}

// loadConfig returns the configuration file (or the default chain), with
// the environment and the flags of cmd applied on top.
func (f *pipelineFlags) loadConfig(cmd *cobra.Command) (distill.Config, error) {
	cfg := distill.DefaultConfig()

	if options.ConfigPath != "" {
		var err error

		cfg, err = distill.LoadConfigFile(options.ConfigPath)
		if err != nil {
			return cfg, err
		}
	}

	cfg, err := distill.ConfigFromEnv(cfg)
	if err != nil {
		return cfg, err
	}

	if cmd.Flags().Changed("tobs") {
		cfg.SetTObs(f.tobs)
	}

	if cmd.Flags().Changed("max-procs") {
		cfg.MaxProcs = f.maxProcs
	}

	if cmd.Flags().Changed("keep-related") {
		cfg.KeepRelated = f.keepRelated
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// openRepository opens the candidates database under options.DbPath. With
// mustExist, a missing database is an error instead of being created.
func openRepository(mustExist bool) (*sql.DB, candidate.Repository, error) {
	dbpath := filepath.Join(options.DbPath, dbFile)

	if mustExist {
		if _, err := os.Stat(dbpath); errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("database not found at %s - run 'candidates import' or 'seed' first", dbpath)
		}
	} else if err := os.MkdirAll(options.DbPath, 0o750); err != nil {
		return nil, nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("duckdb", dbpath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	repo, err := candidate.NewSQLRepository(db)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("initializing repository: %w", err), db.Close())
	}

	if err := repo.CreateSchema(); err != nil {
		return nil, nil, errors.Join(fmt.Errorf("creating schema: %w", err), db.Close())
	}

	return db, repo, nil
}

// printTable draws rows in a box, with a colored heading.
func printTable(w io.Writer, title string, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}

	line := func(left, mid, right string) string {
		parts := make([]string, len(widths))
		for i, width := range widths {
			parts[i] = strings.Repeat("─", width+2)
		}

		return left + strings.Join(parts, mid) + right
	}

	cells := func(values []string) string {
		parts := make([]string, len(widths))
		for i, width := range widths {
			parts[i] = " " + pad(values[i], width) + " "
		}

		return "│" + strings.Join(parts, "│") + "│"
	}

	fmt.Fprintln(w, color.New(color.FgCyan, color.Bold).Sprint(title))
	fmt.Fprintln(w, line("╭", "┬", "╮"))
	fmt.Fprintln(w, cells(headers))
	fmt.Fprintln(w, line("├", "┼", "┤"))

	for _, row := range rows {
		fmt.Fprintln(w, cells(row))
	}

	fmt.Fprintln(w, line("╰", "┴", "╯"))
}

func pad(s string, width int) string {
	return s + strings.Repeat(" ", width-utf8.RuneCountInString(s))
}
