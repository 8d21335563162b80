// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jcodagnone/distill/candidate"
	"github.com/jcodagnone/distill/distill"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(cands []*candidate.Candidate) []int64 {
	ret := make([]int64, 0, len(cands))
	for _, c := range cands {
		ret = append(ret, c.ID)
	}

	return ret
}

func TestSeedCandidatesDistill(t *testing.T) {
	cands, err := candidate.ReadFile(filepath.Join("testdata", "seed.csv"))
	require.NoError(t, err)
	require.Len(t, cands, 15)

	p, err := distill.DefaultConfig().Build()
	require.NoError(t, err)

	result, err := p.Run(context.Background(), cands)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 12, 13, 14, 15, 6}, ids(result.Candidates))
	assert.Equal(t, []int64{4, 2, 3, 5, 7, 10}, result.Candidates[0].RelatedIDs())
}

func TestSeedDatabase(t *testing.T) {
	previous := options.DbPath
	options.DbPath = filepath.Join(t.TempDir(), "db")
	t.Cleanup(func() { options.DbPath = previous })

	_, _, err := openRepository(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")

	require.NoError(t, seedDatabase("demo", filepath.Join("testdata", "seed.csv")))

	db, repo, err := openRepository(true)
	require.NoError(t, err)
	defer db.Close()

	cands, err := repo.LoadCandidates("demo")
	require.NoError(t, err)
	assert.Len(t, cands, 15)
}

func newConfigTestCmd(f *pipelineFlags) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd)

	return cmd
}

func TestLoadConfig_Precedence(t *testing.T) {
	previous := options.ConfigPath
	t.Cleanup(func() { options.ConfigPath = previous })

	path := filepath.Join(t.TempDir(), "distill.yaml")
	content := "max_procs: 2\nstages:\n  - type: acceleration\n    tobs: 300\n    tolerance: 0.001\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	options.ConfigPath = path

	t.Run("file", func(t *testing.T) {
		f := &pipelineFlags{}

		cfg, err := f.loadConfig(newConfigTestCmd(f))
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.MaxProcs)
		assert.InDelta(t, 300.0, cfg.Stages[0].TObs, 1e-9)
		assert.True(t, cfg.KeepRelated)
	})

	t.Run("environment over file", func(t *testing.T) {
		t.Setenv("DISTILL_MAX_PROCS", "6")

		f := &pipelineFlags{}

		cfg, err := f.loadConfig(newConfigTestCmd(f))
		require.NoError(t, err)
		assert.Equal(t, 6, cfg.MaxProcs)
	})

	t.Run("flags over environment", func(t *testing.T) {
		t.Setenv("DISTILL_MAX_PROCS", "6")

		f := &pipelineFlags{}
		cmd := newConfigTestCmd(f)
		require.NoError(t, cmd.Flags().Set("max-procs", "1"))
		require.NoError(t, cmd.Flags().Set("tobs", "1000"))
		require.NoError(t, cmd.Flags().Set("keep-related", "false"))

		cfg, err := f.loadConfig(cmd)
		require.NoError(t, err)
		assert.Equal(t, 1, cfg.MaxProcs)
		assert.InDelta(t, 1000.0, cfg.Stages[0].TObs, 1e-9)
		assert.False(t, cfg.KeepRelated)
	})

	t.Run("invalid flag value", func(t *testing.T) {
		f := &pipelineFlags{}
		cmd := newConfigTestCmd(f)
		require.NoError(t, cmd.Flags().Set("tobs", "-1"))

		_, err := f.loadConfig(cmd)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tobs must be positive")
	})
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer

	printTable(&buf, "Stored runs:", []string{"Run", "Candidates"}, [][]string{
		{"obs1", "15"},
		{"a-much-longer-run", "3"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 7)
	assert.Contains(t, lines[0], "Stored runs:")
	assert.Equal(t, "╭───────────────────┬────────────╮", lines[1])
	assert.Equal(t, "│ Run               │ Candidates │", lines[2])
	assert.Equal(t, "│ obs1              │ 15         │", lines[4])
	assert.Equal(t, "╰───────────────────┴────────────╯", lines[6])
}
