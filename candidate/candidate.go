// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

// Package candidate holds the periodicity detections produced by a search
// stage, and the codecs and storage used to move them in and out of the
// distillation pipeline.
package candidate

import (
	"fmt"
	"math"
)

// MaxHarmonicNumber is the largest harmonic number a candidate may carry.
// Searches sum at most 2^MaxHarmonicNumber harmonics.
const MaxHarmonicNumber = 16

// Candidate is a single detected periodicity.
//
// Only Related is ever modified once a candidate has been produced: the
// distillers append absorbed detections to the surviving representative.
type Candidate struct {
	ID    int64   `json:"id"`
	DM    float64 `json:"dm"`
	DMIdx int     `json:"dm_idx"`
	Acc   float64 `json:"acc"`  // m/s^2
	Jerk  float64 `json:"jerk"` // m/s^3
	NH    int     `json:"nh"`   // harmonic number (log2 of the summed harmonics)
	SNR   float64 `json:"snr"`
	Freq  float64 `json:"freq"` // Hz

	// Circular orbit template parameters.
	N   float64 `json:"n"`
	A1  float64 `json:"a1"`
	Phi float64 `json:"phi"`

	Related []*Candidate `json:"related,omitempty"`
}

// Validate rejects candidates the distillers cannot compare: a frequency
// that is not a positive finite number, a NaN significance or a harmonic
// number outside [0, MaxHarmonicNumber].
func (c *Candidate) Validate() error {
	if !(c.Freq > 0) || math.IsInf(c.Freq, 1) {
		return fmt.Errorf("frequency must be positive and finite, got %v", c.Freq)
	}

	if math.IsNaN(c.SNR) {
		return fmt.Errorf("significance must be a number, got %v", c.SNR)
	}

	if c.NH < 0 {
		return fmt.Errorf("harmonic number must not be negative, got %d", c.NH)
	}

	if c.NH > MaxHarmonicNumber {
		return fmt.Errorf("harmonic number must be at most %d, got %d", MaxHarmonicNumber, c.NH)
	}

	return nil
}

// Append records other as absorbed by c.
func (c *Candidate) Append(other *Candidate) {
	c.Related = append(c.Related, other)
}

// CountAssoc returns the number of candidates reachable through Related,
// counting the related of related candidates as well.
func (c *Candidate) CountAssoc() int {
	n := 0
	for _, r := range c.Related {
		n += 1 + r.CountAssoc()
	}

	return n
}

// Period returns the period in seconds.
func (c *Candidate) Period() float64 {
	return 1 / c.Freq
}

// String returns a short description of the candidate.
func (c *Candidate) String() string {
	return fmt.Sprintf("#%d f=%.9f Hz snr=%.2f dm=%.3f acc=%.3f nh=%d", c.ID, c.Freq, c.SNR, c.DM, c.Acc, c.NH)
}

// RelatedIDs returns the IDs of the directly related candidates, in the
// order they were appended.
func (c *Candidate) RelatedIDs() []int64 {
	ret := make([]int64, 0, len(c.Related))
	for _, r := range c.Related {
		ret = append(ret, r.ID)
	}

	return ret
}
