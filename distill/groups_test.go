// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package distill

import (
	"context"
	"errors"
	"testing"

	"github.com/jcodagnone/distill/candidate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupByDM(t *testing.T) {
	cands := []*candidate.Candidate{
		{ID: 1, DMIdx: 3},
		{ID: 2, DMIdx: 1},
		{ID: 3, DMIdx: 3},
		{ID: 4, DMIdx: 0},
		{ID: 5, DMIdx: 1},
	}

	groups := GroupByDM(cands)

	require.Len(t, groups, 3)
	assert.Equal(t, []int64{1, 3}, ids(groups[0]))
	assert.Equal(t, []int64{2, 5}, ids(groups[1]))
	assert.Equal(t, []int64{4}, ids(groups[2]))

	assert.Empty(t, GroupByDM(nil))
}

func TestDistillGroups(t *testing.T) {
	groups := GroupByDM(randomCandidates(7, 200))
	require.Len(t, groups, 5)

	d := NewHarmonicDistiller(0.001, 8, true, false)

	for _, procs := range []int{0, 1, 3} {
		outs, stats, err := DistillGroups(context.Background(), d, groups, procs)
		require.NoError(t, err)
		require.Len(t, outs, len(groups))

		expected := Stats{}
		for i, group := range groups {
			// Every member of a group shares its DM trial.
			for _, c := range outs[i] {
				assert.Equal(t, group[0].DMIdx, c.DMIdx)
			}

			// Distilling again is a no-op, so the sequential run agrees.
			_, s := d.DistillWithStats(append([]*candidate.Candidate(nil), outs[i]...))
			assert.Equal(t, len(outs[i]), s.Output)

			expected.Input += len(group)
			expected.Output += len(outs[i])
		}

		assert.Equal(t, expected.Input, stats.Input)
		assert.Equal(t, expected.Output, stats.Output)
		assert.Equal(t, stats.Input-stats.Output, stats.Absorbed)
	}
}

func TestDistillGroups_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	groups := GroupByDM(randomCandidates(7, 50))

	_, _, err := DistillGroups(ctx, NewDMDistiller(0.001, true), groups, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
