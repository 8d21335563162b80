// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/jcodagnone/distill/candidate"
	"github.com/spf13/cobra"
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "Manage the candidate runs stored in the database",
}

var candidatesImportCmd = &cobra.Command{
	Use:   "import <run> <candidates.csv[.gz]>",
	Short: "Store a candidates file as a run, replacing any previous content",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		run, path := args[0], args[1]

		cands, err := candidate.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading candidates: %w", err)
		}

		db, repo, err := openRepository(false)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := repo.SaveCandidates(run, cands); err != nil {
			return fmt.Errorf("storing candidates: %w", err)
		}

		log.Printf("Stored %d candidates as run %s", len(cands), run)

		return nil
	},
}

var candidatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the stored runs and their distilled stages",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, repo, err := openRepository(true)
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := repo.ListRuns()
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}

		rows := make([][]string, 0, len(runs))

		for _, r := range runs {
			stages := make([]string, 0, len(r.Stages))
			for _, s := range r.Stages {
				stages = append(stages, fmt.Sprintf("%s=%d", s.Stage, s.Representatives))
			}

			rows = append(rows, []string{r.Run, strconv.Itoa(r.Candidates), strings.Join(stages, " ")})
		}

		printTable(os.Stdout, "Stored runs:", []string{"Run", "Candidates", "Stages"}, rows)

		return nil
	},
}

var exportOpts = struct {
	Stage         string
	Output        string
	RelatedOutput string
}{}

var candidatesExportCmd = &cobra.Command{
	Use:   "export <run>",
	Short: "Write the raw candidates of a run, or the representatives of one of its stages",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		db, repo, err := openRepository(true)
		if err != nil {
			return err
		}
		defer db.Close()

		var cands []*candidate.Candidate
		if exportOpts.Stage == "" {
			cands, err = repo.LoadCandidates(args[0])
		} else {
			cands, err = repo.LoadDistilled(args[0], exportOpts.Stage)
		}

		if err != nil {
			return fmt.Errorf("loading %s: %w", args[0], err)
		}

		if len(cands) == 0 {
			return fmt.Errorf("no candidates stored for run %q", args[0])
		}

		if err := writeCandidates(exportOpts.Output, cands, candidate.Write); err != nil {
			return err
		}

		if exportOpts.RelatedOutput != "" {
			return writeCandidates(exportOpts.RelatedOutput, cands, candidate.WriteRelated)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(candidatesCmd)
	candidatesCmd.AddCommand(candidatesImportCmd)
	candidatesCmd.AddCommand(candidatesListCmd)
	candidatesCmd.AddCommand(candidatesExportCmd)

	candidatesExportCmd.Flags().StringVar(&exportOpts.Stage, "stage", "", "Export the representatives of this stage")
	candidatesExportCmd.Flags().StringVarP(&exportOpts.Output, "output", "o", "-", "Where to write the candidates. Suffix with .gz to compress")
	candidatesExportCmd.Flags().StringVar(&exportOpts.RelatedOutput, "related-output", "", "Where to write the stored provenance links")
}
