// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/jcodagnone/distill/candidate"
	"github.com/jcodagnone/distill/distill"
	"github.com/spf13/cobra"
)

type runOptions struct {
	pipelineFlags

	Output        string
	RelatedOutput string
	Run           string
}

var runOpts = &runOptions{}

var runCmd = &cobra.Command{
	Use:   "run <candidates.csv[.gz]>",
	Short: "Distill a candidates file",
	Long: `Reads a candidates file, runs it through the distillation pipeline and
writes the surviving representatives as CSV.

$ distill run --tobs 1073.741824 -o reps.csv --related-output related.csv cands.csv.gz`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := runOpts.loadConfig(cmd)
		if err != nil {
			return err
		}

		cands, err := candidate.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading candidates: %w", err)
		}

		log.Printf("Read %d candidates from %s", len(cands), args[0])

		p, err := cfg.Build()
		if err != nil {
			return err
		}

		if runOpts.Run != "" {
			db, repo, err := openRepository(false)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repo.SaveCandidates(runOpts.Run, cands); err != nil {
				return fmt.Errorf("storing candidates: %w", err)
			}

			p.OnStage(func(sr distill.StageResult) error {
				return repo.SaveDistilled(runOpts.Run, sr.Name, sr.Candidates)
			})
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		result, err := p.Run(ctx, cands)
		if err != nil {
			return err
		}

		if err := writeCandidates(runOpts.Output, result.Candidates, candidate.Write); err != nil {
			return err
		}

		if runOpts.RelatedOutput != "" {
			if err := writeCandidates(runOpts.RelatedOutput, result.Candidates, candidate.WriteRelated); err != nil {
				return err
			}
		}

		printStages(os.Stderr, result)

		return nil
	},
}

// writeCandidates encodes cands to path, or to stdout when path is "-".
func writeCandidates(path string, cands []*candidate.Candidate, encode func(io.Writer, []*candidate.Candidate) error) error {
	if path == "-" || path == "" {
		return encode(os.Stdout, cands)
	}

	if err := candidate.WriteFile(path, cands, encode); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	log.Printf("Wrote %d candidates to %s", len(cands), path)

	return nil
}

func printStages(w io.Writer, result *distill.Result) {
	rows := make([][]string, 0, len(result.Stages))

	for _, sr := range result.Stages {
		rows = append(rows, []string{
			sr.Name,
			sr.Scope,
			strconv.Itoa(sr.Groups),
			strconv.Itoa(sr.Stats.Input),
			strconv.Itoa(sr.Stats.Output),
			strconv.Itoa(sr.Stats.Absorbed),
			strconv.Itoa(sr.Stats.Comparisons),
			strconv.FormatInt(sr.ElapsedMs, 10) + "ms",
		})
	}

	printTable(w, "Stages:", []string{"Stage", "Scope", "Groups", "In", "Out", "Absorbed", "Comparisons", "Elapsed"}, rows)
}

func init() {
	rootCmd.AddCommand(runCmd)
	runOpts.register(runCmd)
	runCmd.Flags().StringVarP(&runOpts.Output, "output", "o", "-", "Where to write the representatives. Suffix with .gz to compress")
	runCmd.Flags().StringVar(&runOpts.RelatedOutput, "related-output", "", "Where to write the absorbed candidates of every representative")
	runCmd.Flags().StringVar(&runOpts.Run, "run", "", "Also store the candidates and every stage in the database under this run name")
}
