// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

// Package distill collapses clusters of re-detections of the same signal
// into a single representative.
//
// A search stage reports the same pulsar many times: at its harmonics, at
// neighbouring acceleration and DM trials, and from overlapping orbital
// templates. A Distiller sorts the candidates by descending significance and
// sweeps them once. Every candidate not yet absorbed becomes a
// representative, and all the candidates after it that satisfy the
// distiller's Predicate are absorbed. Only representatives are returned.
//
// Five predicates are provided:
//
//   - Harmonic: integer, or simple fractional, multiples of the frequency.
//   - Acceleration: the frequency window swept between two acceleration trials.
//   - CircularOrbit: the Doppler window of a circular orbit template.
//   - DM: the same frequency within a fractional tolerance.
//   - Polynomial: a box over frequency, acceleration and jerk.
//
// Distillers are usually chained, see Pipeline and Config. The usual chain
// folds harmonics and acceleration trials within each DM trial, running the
// trials concurrently with DistillGroups, and then folds DM trials together:
//
//	pipeline, err := distill.DefaultConfig().Build()
//	if err != nil {
//	    return err
//	}
//	result, err := pipeline.Run(ctx, cands)
//
// The engine does O(n^2) predicate evaluations; large candidate lists should
// be partitioned first.
package distill
