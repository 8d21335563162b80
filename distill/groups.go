// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package distill

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/jcodagnone/distill/candidate"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// GroupByDM partitions cands by DM trial index. Groups appear in the order
// their first member appears in cands, and members keep their relative order.
func GroupByDM(cands []*candidate.Candidate) [][]*candidate.Candidate {
	index := make(map[int]int)

	var groups [][]*candidate.Candidate

	for _, c := range cands {
		i, ok := index[c.DMIdx]
		if !ok {
			i = len(groups)
			index[c.DMIdx] = i
			groups = append(groups, nil)
		}

		groups[i] = append(groups[i], c)
	}

	return groups
}

// DistillGroups runs d over each group concurrently, using at most maxProcs
// goroutines (the number of CPUs when maxProcs is 0). The groups must not
// share candidates. Outputs are returned in group order together with the
// merged statistics.
func DistillGroups(
	ctx context.Context,
	d *Distiller,
	groups [][]*candidate.Candidate,
	maxProcs int,
) ([][]*candidate.Candidate, Stats, error) {
	if maxProcs <= 0 {
		maxProcs = runtime.NumCPU()
	}

	var bar *progressbar.ProgressBar
	if len(groups) > 1 && isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(len(groups),
			progressbar.OptionSetDescription("Distilling "+d.Name()),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	out := make([][]*candidate.Candidate, len(groups))
	stats := make([]Stats, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxProcs)

	for i, group := range groups {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			out[i], stats[i] = d.DistillWithStats(group)

			if bar != nil {
				if err := bar.Add(1); err != nil {
					return fmt.Errorf("updating progress bar for group %d: %w", i, err)
				}
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	// errgroup only reports errors returned by the goroutines.
	if err := ctx.Err(); err != nil {
		return nil, Stats{}, err
	}

	var total Stats
	for i := range stats {
		total.Merge(&stats[i])
	}

	return out, total, nil
}
