// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package distill

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jcodagnone/distill/candidate"
)

// Stage is a distiller together with the scope it runs in.
type Stage struct {
	Distiller *Distiller
	Scope     string
}

// Pipeline chains distillers, each stage consuming the previous output.
type Pipeline struct {
	stages   []Stage
	maxProcs int
	onStage  func(StageResult) error
}

// NewPipeline returns a pipeline running stages in order.
func NewPipeline(maxProcs int, stages ...Stage) *Pipeline {
	return &Pipeline{
		stages:   stages,
		maxProcs: maxProcs,
	}
}

// Build returns the pipeline described by c.
func (c Config) Build() (*Pipeline, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	stages := make([]Stage, 0, len(c.Stages))

	for _, s := range c.Stages {
		d, err := s.Distiller(c.KeepRelated)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", s.StageName(), err)
		}

		scope := s.Scope
		if scope == "" {
			scope = ScopeGlobal
		}

		stages = append(stages, Stage{Distiller: d, Scope: scope})
	}

	return NewPipeline(c.MaxProcs, stages...), nil
}

// OnStage registers fn to be called after each stage completes, before the
// next one starts. An error from fn stops the run.
func (p *Pipeline) OnStage(fn func(StageResult) error) *Pipeline {
	p.onStage = fn

	return p
}

// Stages returns the names of the pipeline stages, in order.
func (p *Pipeline) Stages() []string {
	ret := make([]string, 0, len(p.stages))
	for _, s := range p.stages {
		ret = append(ret, s.Distiller.Name())
	}

	return ret
}

// StageResult describes the outcome of one stage.
type StageResult struct {
	Name      string `json:"name"`
	Scope     string `json:"scope"`
	Groups    int    `json:"groups"`
	Stats     Stats  `json:"stats"`
	ElapsedMs int64  `json:"elapsed_ms"`

	// Candidates are the representatives the stage produced.
	Candidates []*candidate.Candidate `json:"-"`
}

// Result is the outcome of a pipeline run.
type Result struct {
	Candidates []*candidate.Candidate `json:"candidates"`
	Stages     []StageResult          `json:"stages"`
}

// Run distills cands through every stage. cands is sorted in place by
// descending significance before the first stage, whatever its scope; the
// returned candidates are sorted the same way.
func (p *Pipeline) Run(ctx context.Context, cands []*candidate.Candidate) (*Result, error) {
	SortBySignificance(cands)

	result := &Result{
		Candidates: cands,
		Stages:     make([]StageResult, 0, len(p.stages)),
	}

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("stage %s: %w", stage.Distiller.Name(), err)
		}

		started := time.Now()
		sr := StageResult{
			Name:  stage.Distiller.Name(),
			Scope: stage.Scope,
		}

		if stage.Scope == ScopePerDM {
			groups := GroupByDM(result.Candidates)

			outs, stats, err := DistillGroups(ctx, stage.Distiller, groups, p.maxProcs)
			if err != nil {
				return nil, fmt.Errorf("stage %s: %w", sr.Name, err)
			}

			var merged []*candidate.Candidate
			for _, out := range outs {
				merged = append(merged, out...)
			}

			SortBySignificance(merged)

			sr.Groups = len(groups)
			sr.Stats = stats
			sr.Candidates = merged
		} else {
			sr.Groups = 1
			sr.Candidates, sr.Stats = stage.Distiller.DistillWithStats(result.Candidates)
		}

		if sr.Candidates == nil {
			sr.Candidates = []*candidate.Candidate{}
		}

		sr.ElapsedMs = time.Since(started).Milliseconds()

		log.Printf(
			"Stage %s (%s) - %d candidates in, %d out, %d absorbed, %d comparisons across %d groups in %dms",
			sr.Name,
			sr.Scope,
			sr.Stats.Input,
			sr.Stats.Output,
			sr.Stats.Absorbed,
			sr.Stats.Comparisons,
			sr.Groups,
			sr.ElapsedMs,
		)

		if p.onStage != nil {
			if err := p.onStage(sr); err != nil {
				return nil, fmt.Errorf("stage %s: %w", sr.Name, err)
			}
		}

		result.Candidates = sr.Candidates
		result.Stages = append(result.Stages, sr)
	}

	return result, nil
}
