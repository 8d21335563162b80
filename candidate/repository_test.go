// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package candidate

import (
	"database/sql"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*sql.DB, Repository) {
	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)

	repo, err := NewSQLRepository(db)
	require.NoError(t, err)
	require.NoError(t, repo.CreateSchema())

	return db, repo
}

func sampleCandidates() []*Candidate {
	return []*Candidate{
		{ID: 0, SNR: 10, Freq: 100, DM: 10, DMIdx: 1},
		{ID: 1, SNR: 8, Freq: 100.0005, DM: 10.5, DMIdx: 2},
		{ID: 2, SNR: 5, Freq: 300, DM: 11, DMIdx: 3, Acc: 1.5, Jerk: 0.01, NH: 2},
	}
}

func TestSQLRepository_SaveLoadCandidates(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	require.NoError(t, repo.SaveCandidates("obs1", sampleCandidates()))
	require.NoError(t, repo.SaveCandidates("obs2", sampleCandidates()[:1]))

	got, err := repo.LoadCandidates("obs1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 300.0, got[2].Freq)
	assert.Equal(t, 1.5, got[2].Acc)
	assert.Equal(t, 2, got[2].NH)

	// Saving again replaces the run.
	require.NoError(t, repo.SaveCandidates("obs1", sampleCandidates()[:2]))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM candidates WHERE run = 'obs1'").Scan(&count))
	assert.Equal(t, 2, count)

	missing, err := repo.LoadCandidates("nope")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestSQLRepository_SaveLoadDistilled(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	cands := sampleCandidates()
	require.NoError(t, repo.SaveCandidates("obs1", cands))

	cands[0].Append(cands[1])
	reps := []*Candidate{cands[0], cands[2]}
	require.NoError(t, repo.SaveDistilled("obs1", "dm", reps))

	got, err := repo.LoadDistilled("obs1", "dm")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(0), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)
	assert.Equal(t, []int64{1}, got[0].RelatedIDs())
	assert.Empty(t, got[1].Related)

	var links int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM related WHERE run = 'obs1' AND stage = 'dm'").Scan(&links))
	assert.Equal(t, 1, links)
}

func TestSQLRepository_ListRuns(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	cands := sampleCandidates()
	require.NoError(t, repo.SaveCandidates("b", cands))
	require.NoError(t, repo.SaveCandidates("a", cands[:1]))

	cands[0].Append(cands[1])
	require.NoError(t, repo.SaveDistilled("b", "harmonic", []*Candidate{cands[0], cands[2]}))

	runs, err := repo.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "a", runs[0].Run)
	assert.Equal(t, 1, runs[0].Candidates)
	assert.Empty(t, runs[0].Stages)

	assert.Equal(t, "b", runs[1].Run)
	assert.Equal(t, 3, runs[1].Candidates)
	assert.Equal(t, []StageSummary{{Stage: "harmonic", Representatives: 2, Links: 1}}, runs[1].Stages)
}

func TestNewSQLRepository_NilDB(t *testing.T) {
	_, err := NewSQLRepository(nil)
	require.Error(t, err)
}
