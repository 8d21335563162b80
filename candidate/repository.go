// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package candidate

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
)

// Repository defines the interface for database operations.
type Repository interface {
	// CreateSchema creates the database schema.
	CreateSchema() error
	// SaveCandidates replaces the raw candidates of a run.
	SaveCandidates(run string, cands []*Candidate) error
	// LoadCandidates returns the raw candidates of a run ordered by id.
	LoadCandidates(run string) ([]*Candidate, error)

	//////// Distillation output
	// SaveDistilled replaces the representatives and provenance links
	// recorded for a run at the given stage.
	SaveDistilled(run, stage string, reps []*Candidate) error
	// LoadDistilled returns the representatives of a run at a stage in
	// rank order, with Related rebuilt from the stored links.
	LoadDistilled(run, stage string) ([]*Candidate, error)
	// ListRuns summarizes the stored runs.
	ListRuns() ([]RunSummary, error)
}

// RunSummary describes a stored run.
type RunSummary struct {
	Run        string         `json:"run"`
	Candidates int            `json:"candidates"`
	Stages     []StageSummary `json:"stages"`
}

// StageSummary describes the stored output of one distillation stage.
type StageSummary struct {
	Stage           string `json:"stage"`
	Representatives int    `json:"representatives"`
	Links           int    `json:"links"`
}

type sqlRepository struct {
	db *sql.DB
}

// NewSQLRepository returns a Repository backed by db.
func NewSQLRepository(db *sql.DB) (Repository, error) {
	if db == nil {
		return nil, errors.New("nil database handle")
	}

	return &sqlRepository{db: db}, nil
}

func (r *sqlRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS candidates (
			run VARCHAR NOT NULL,
			id BIGINT NOT NULL,
			dm DOUBLE,
			dm_idx INTEGER,
			acc DOUBLE,
			jerk DOUBLE,
			nh INTEGER,
			snr DOUBLE NOT NULL,
			freq DOUBLE NOT NULL,
			n DOUBLE,
			a1 DOUBLE,
			phi DOUBLE
		);

		CREATE TABLE IF NOT EXISTS distilled (
			run VARCHAR NOT NULL,
			stage VARCHAR NOT NULL,
			ordinal INTEGER NOT NULL,
			id BIGINT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS related (
			run VARCHAR NOT NULL,
			stage VARCHAR NOT NULL,
			id BIGINT NOT NULL,
			pos INTEGER NOT NULL,
			related_id BIGINT NOT NULL
		);
	`)

	return err
}

func rollback(tx *sql.Tx, what string) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Printf("failed to rollback transaction for %s: %v", what, err)
	}
}

func (r *sqlRepository) SaveCandidates(run string, cands []*Candidate) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction for %s: %w", run, err)
	}
	defer rollback(tx, run)

	for _, table := range []string{"candidates", "distilled", "related"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE run = ?", run); err != nil {
			return fmt.Errorf("deleting %s for %s: %w", table, run, err)
		}
	}

	stmt, err := tx.Prepare(`
		INSERT INTO candidates (run, id, dm, dm_idx, acc, jerk, nh, snr, freq, n, a1, phi)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range cands {
		if _, err := stmt.Exec(run, c.ID, c.DM, c.DMIdx, c.Acc, c.Jerk, c.NH, c.SNR, c.Freq, c.N, c.A1, c.Phi); err != nil {
			return fmt.Errorf("inserting candidate %d for %s: %w", c.ID, run, err)
		}
	}

	return tx.Commit()
}

func (r *sqlRepository) loadRun(run string) ([]*Candidate, error) {
	rows, err := r.db.Query(`
		SELECT id, dm, dm_idx, acc, jerk, nh, snr, freq, n, a1, phi
		FROM candidates
		WHERE run = ?
		ORDER BY id
	`, run)
	if err != nil {
		return nil, fmt.Errorf("querying candidates: %w", err)
	}
	defer rows.Close()

	ret := []*Candidate{}

	for rows.Next() {
		c := &Candidate{}
		if err := rows.Scan(&c.ID, &c.DM, &c.DMIdx, &c.Acc, &c.Jerk, &c.NH, &c.SNR, &c.Freq, &c.N, &c.A1, &c.Phi); err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}

		ret = append(ret, c)
	}

	return ret, rows.Err()
}

func (r *sqlRepository) LoadCandidates(run string) ([]*Candidate, error) {
	return r.loadRun(run)
}

func (r *sqlRepository) SaveDistilled(run, stage string, reps []*Candidate) error {
	what := run + "/" + stage

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction for %s: %w", what, err)
	}
	defer rollback(tx, what)

	for _, table := range []string{"distilled", "related"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE run = ? AND stage = ?", run, stage); err != nil {
			return fmt.Errorf("deleting %s for %s: %w", table, what, err)
		}
	}

	repStmt, err := tx.Prepare("INSERT INTO distilled (run, stage, ordinal, id) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer repStmt.Close()

	relStmt, err := tx.Prepare("INSERT INTO related (run, stage, id, pos, related_id) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer relStmt.Close()

	for rank, c := range reps {
		if _, err := repStmt.Exec(run, stage, rank, c.ID); err != nil {
			return fmt.Errorf("inserting representative %d for %s: %w", c.ID, what, err)
		}

		for pos, rel := range c.Related {
			if _, err := relStmt.Exec(run, stage, c.ID, pos, rel.ID); err != nil {
				return fmt.Errorf("inserting related %d of %d for %s: %w", rel.ID, c.ID, what, err)
			}
		}
	}

	return tx.Commit()
}

func (r *sqlRepository) LoadDistilled(run, stage string) ([]*Candidate, error) {
	all, err := r.loadRun(run)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*Candidate, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}

	rows, err := r.db.Query("SELECT id FROM distilled WHERE run = ? AND stage = ? ORDER BY ordinal", run, stage)
	if err != nil {
		return nil, fmt.Errorf("querying distilled: %w", err)
	}
	defer rows.Close()

	ret := []*Candidate{}

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning distilled: %w", err)
		}

		c, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("distilled candidate %d not found in run %s", id, run)
		}

		ret = append(ret, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	links, err := r.db.Query(`
		SELECT id, related_id
		FROM related
		WHERE run = ? AND stage = ?
		ORDER BY id, pos
	`, run, stage)
	if err != nil {
		return nil, fmt.Errorf("querying related: %w", err)
	}
	defer links.Close()

	for links.Next() {
		var id, relatedID int64
		if err := links.Scan(&id, &relatedID); err != nil {
			return nil, fmt.Errorf("scanning related: %w", err)
		}

		c, ok := byID[id]
		if !ok {
			continue
		}

		if rel, ok := byID[relatedID]; ok {
			c.Append(rel)
		}
	}

	return ret, links.Err()
}

func (r *sqlRepository) ListRuns() ([]RunSummary, error) {
	rows, err := r.db.Query("SELECT run, COUNT(*) FROM candidates GROUP BY run ORDER BY run")
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	ret := []RunSummary{}
	index := make(map[string]int)

	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.Run, &s.Candidates); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}

		index[s.Run] = len(ret)
		ret = append(ret, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	stages, err := r.db.Query(`
		SELECT d.run, d.stage, d.reps, COALESCE(l.links, 0)
		FROM (
			SELECT run, stage, COUNT(*) AS reps FROM distilled GROUP BY run, stage
		) d
		LEFT JOIN (
			SELECT run, stage, COUNT(*) AS links FROM related GROUP BY run, stage
		) l ON d.run = l.run AND d.stage = l.stage
		ORDER BY d.run, d.stage
	`)
	if err != nil {
		return nil, fmt.Errorf("querying stages: %w", err)
	}
	defer stages.Close()

	for stages.Next() {
		var run string

		var s StageSummary
		if err := stages.Scan(&run, &s.Stage, &s.Representatives, &s.Links); err != nil {
			return nil, fmt.Errorf("scanning stage: %w", err)
		}

		if i, ok := index[run]; ok {
			ret[i].Stages = append(ret[i].Stages, s)
		}
	}

	return ret, stages.Err()
}
