// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/jcodagnone/distill/candidate"
	"github.com/spf13/cobra"
)

const seedFile = "cmd/testdata/seed.csv"

func newSeedCmd() *cobra.Command {
	var run string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seeds the database with the synthetic run from " + seedFile,
		RunE: func(_ *cobra.Command, _ []string) error {
			return seedDatabase(run, seedFile)
		},
	}

	cmd.Flags().StringVar(&run, "run", "seed", "Run name to store the candidates under")

	return cmd
}

func init() {
	rootCmd.AddCommand(newSeedCmd())
}

func seedDatabase(run, path string) error {
	cands, err := candidate.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed candidates: %w", err)
	}

	db, repo, err := openRepository(false)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repo.SaveCandidates(run, cands); err != nil {
		return fmt.Errorf("failed to save candidates: %w", err)
	}

	fmt.Printf("Database seeded successfully with %d candidates as run %q.\n", len(cands), run)

	return nil
}
