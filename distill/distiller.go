// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package distill

import (
	"cmp"
	"slices"

	"github.com/jcodagnone/distill/candidate"
)

// Predicate decides whether cand is a near-duplicate of rep. rep always
// precedes cand in descending significance order.
type Predicate interface {
	Matches(rep, cand *candidate.Candidate) bool
}

// PredicateFunc adapts a plain function to the Predicate interface.
type PredicateFunc func(rep, cand *candidate.Candidate) bool

// Matches calls f(rep, cand).
func (f PredicateFunc) Matches(rep, cand *candidate.Candidate) bool {
	return f(rep, cand)
}

// Distiller collapses clusters of related candidates into their most
// significant member. A Distiller holds no per-call state, so it may be used
// from several goroutines as long as each works on its own slice.
type Distiller struct {
	name        string
	predicate   Predicate
	keepRelated bool
}

// New returns a Distiller applying predicate. When keepRelated is set the
// absorbed candidates are appended to their representative.
func New(name string, predicate Predicate, keepRelated bool) *Distiller {
	return &Distiller{
		name:        name,
		predicate:   predicate,
		keepRelated: keepRelated,
	}
}

// Name returns the name the distiller was created with.
func (d *Distiller) Name() string {
	return d.name
}

// Predicate returns the similarity test applied by the distiller.
func (d *Distiller) Predicate() Predicate {
	return d.predicate
}

// KeepRelated reports whether absorbed candidates are recorded.
func (d *Distiller) KeepRelated() bool {
	return d.keepRelated
}

// Stats describes a single Distill call.
type Stats struct {
	Input       int `json:"input"`
	Output      int `json:"output"`
	Absorbed    int `json:"absorbed"`    // Input - Output
	Comparisons int `json:"comparisons"` // predicate evaluations
	Links       int `json:"links"`       // entries appended to Related
}

// Merge adds other into s.
func (s *Stats) Merge(other *Stats) *Stats {
	if other == nil {
		return s
	}

	s.Input += other.Input
	s.Output += other.Output
	s.Absorbed += other.Absorbed
	s.Comparisons += other.Comparisons
	s.Links += other.Links

	return s
}

// SortBySignificance stably sorts cands by descending SNR.
func SortBySignificance(cands []*candidate.Candidate) {
	slices.SortStableFunc(cands, func(a, b *candidate.Candidate) int {
		return cmp.Compare(b.SNR, a.SNR)
	})
}

// Distill sorts cands in place by descending significance and returns the
// representatives, in that order. The returned slice shares its elements
// with cands.
func (d *Distiller) Distill(cands []*candidate.Candidate) []*candidate.Candidate {
	ret, _ := d.DistillWithStats(cands)

	return ret
}

// DistillWithStats is Distill, also reporting what the call did.
func (d *Distiller) DistillWithStats(cands []*candidate.Candidate) ([]*candidate.Candidate, Stats) {
	size := len(cands)
	stats := Stats{Input: size}

	SortBySignificance(cands)

	unique := make([]bool, size)
	for i := range unique {
		unique[i] = true
	}

	count := 0
	start := 0

	for {
		idx := -1

		for ii := start; ii < size; ii++ {
			if unique[ii] {
				start = ii + 1
				idx = ii

				break
			}
		}

		if idx == -1 {
			break
		}

		count++
		d.condition(cands, unique, idx, &stats)
	}

	ret := make([]*candidate.Candidate, 0, count)

	for ii, c := range cands {
		if unique[ii] {
			ret = append(ret, c)
		}
	}

	stats.Output = len(ret)
	stats.Absorbed = size - len(ret)

	return ret, stats
}

// condition tests every candidate after idx against cands[idx], whether or
// not it was already absorbed by an earlier representative.
func (d *Distiller) condition(cands []*candidate.Candidate, unique []bool, idx int, stats *Stats) {
	rep := cands[idx]

	for jj := idx + 1; jj < len(cands); jj++ {
		stats.Comparisons++

		if !d.predicate.Matches(rep, cands[jj]) {
			continue
		}

		if d.keepRelated {
			rep.Append(cands[jj])
			stats.Links++
		}

		unique[jj] = false
	}
}
