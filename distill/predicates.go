// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package distill

import (
	"math"

	"github.com/jcodagnone/distill/candidate"
)

// SpeedOfLight in m/s.
const SpeedOfLight = 299792458.0

// PolynomialFloor keeps the polynomial tolerances open when the reference
// value is exactly zero.
const PolynomialFloor = 1e-8

// Harmonic matches candidates whose frequency is an integer, or with
// Fractional set a simple fractional, multiple of the representative's.
type Harmonic struct {
	Tolerance    float64
	MaxHarmonics int
	Fractional   bool
}

// Matches reports whether kk*f(cand) / (jj*f(rep)) falls inside the
// tolerance for some jj in [1, MaxHarmonics] and kk in [1, 2^nh(cand)].
// nh is capped at candidate.MaxHarmonicNumber.
func (h Harmonic) Matches(rep, cand *candidate.Candidate) bool {
	upper := 1 + h.Tolerance
	lower := 1 - h.Tolerance
	fundi := rep.Freq

	maxDenominator := 1
	if h.Fractional && cand.NH > 0 {
		maxDenominator = 1 << min(cand.NH, candidate.MaxHarmonicNumber)
	}

	for jj := 1; jj <= h.MaxHarmonics; jj++ {
		for kk := 1; kk <= maxDenominator; kk++ {
			ratio := float64(kk) * cand.Freq / (float64(jj) * fundi)
			if ratio > lower && ratio < upper {
				return true
			}
		}
	}

	return false
}

// Acceleration matches candidates whose frequency lies in the window swept
// by the representative when its acceleration is changed to the
// candidate's over an observation of length TObs seconds. Positive
// acceleration is away from the observer.
type Acceleration struct {
	Tolerance float64
	TObs      float64
}

// CorrectForAcceleration returns freq shifted by deltaAcc over TObs.
func (a Acceleration) CorrectForAcceleration(freq, deltaAcc float64) float64 {
	return freq + deltaAcc*freq*(a.TObs/SpeedOfLight)
}

// Matches reports whether cand falls within the acceleration window of rep.
func (a Acceleration) Matches(rep, cand *candidate.Candidate) bool {
	fundi := rep.Freq
	edge := fundi * a.Tolerance
	accFreq := a.CorrectForAcceleration(fundi, rep.Acc-cand.Acc)

	if accFreq > fundi {
		return cand.Freq > fundi-edge && cand.Freq < accFreq+edge
	}

	return cand.Freq > accFreq-edge && cand.Freq < fundi+edge
}

// CircularOrbit matches candidates inside the Doppler window of the
// representative's circular orbit template. The orbital phase plays no part.
type CircularOrbit struct {
	Tolerance float64
}

// DopplerWindow returns the frequency range swept by c's template.
func (CircularOrbit) DopplerWindow(c *candidate.Candidate) (minFreq, maxFreq float64) {
	return c.Freq * (1 - c.N*c.A1), c.Freq * (1 + c.N*c.A1)
}

// Matches reports whether cand lies in rep's Doppler window widened by the
// tolerance.
func (o CircularOrbit) Matches(rep, cand *candidate.Candidate) bool {
	minFreq, maxFreq := o.DopplerWindow(rep)
	edge := rep.Freq * o.Tolerance

	return cand.Freq > minFreq-edge && cand.Freq < maxFreq+edge
}

// DM matches candidates at the same frequency, as seen from adjacent DM trials.
type DM struct {
	Tolerance float64
}

// Matches reports whether f(cand)/f(rep) lies strictly inside 1 +/- Tolerance.
func (d DM) Matches(rep, cand *candidate.Candidate) bool {
	ratio := cand.Freq / rep.Freq

	return ratio > 1-d.Tolerance && ratio < 1+d.Tolerance
}

// Polynomial matches candidates close to the representative in frequency,
// acceleration and jerk at the same time.
type Polynomial struct {
	FreqTolerance float64
	AccTolerance  float64
	JerkTolerance float64
}

// Matches reports whether cand lies in the box around rep.
func (p Polynomial) Matches(rep, cand *candidate.Candidate) bool {
	edgeFreq := math.Abs(rep.Freq)*p.FreqTolerance + PolynomialFloor
	edgeAcc := math.Abs(rep.Acc)*p.AccTolerance + PolynomialFloor
	edgeJerk := math.Abs(rep.Jerk)*p.JerkTolerance + PolynomialFloor

	return math.Abs(cand.Freq-rep.Freq) < edgeFreq &&
		math.Abs(cand.Acc-rep.Acc) < edgeAcc &&
		math.Abs(cand.Jerk-rep.Jerk) < edgeJerk
}

// NewHarmonicDistiller removes harmonics of more significant candidates.
func NewHarmonicDistiller(tolerance float64, maxHarmonics int, keepRelated, fractional bool) *Distiller {
	return New(StageHarmonic, Harmonic{
		Tolerance:    tolerance,
		MaxHarmonics: maxHarmonics,
		Fractional:   fractional,
	}, keepRelated)
}

// NewAccelerationDistiller removes re-detections at neighbouring
// acceleration trials; tobs is the observation length in seconds.
func NewAccelerationDistiller(tobs, tolerance float64, keepRelated bool) *Distiller {
	return New(StageAcceleration, Acceleration{Tolerance: tolerance, TObs: tobs}, keepRelated)
}

// NewCircularOrbitDistiller removes re-detections from overlapping circular
// orbit templates.
func NewCircularOrbitDistiller(tolerance float64, keepRelated bool) *Distiller {
	return New(StageCircularOrbit, CircularOrbit{Tolerance: tolerance}, keepRelated)
}

// NewDMDistiller removes re-detections at neighbouring DM trials.
func NewDMDistiller(tolerance float64, keepRelated bool) *Distiller {
	return New(StageDM, DM{Tolerance: tolerance}, keepRelated)
}

// NewPolynomialDistiller removes re-detections from overlapping polynomial
// (acceleration and jerk) templates.
func NewPolynomialDistiller(freqTolerance, accTolerance, jerkTolerance float64, keepRelated bool) *Distiller {
	return New(StagePolynomial, Polynomial{
		FreqTolerance: freqTolerance,
		AccTolerance:  accTolerance,
		JerkTolerance: jerkTolerance,
	}, keepRelated)
}
