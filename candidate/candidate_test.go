// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package candidate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidate_Append(t *testing.T) {
	rep := &Candidate{ID: 1, SNR: 10, Freq: 100}
	a := &Candidate{ID: 2, SNR: 8, Freq: 200}
	b := &Candidate{ID: 3, SNR: 5, Freq: 300}

	assert.Empty(t, rep.Related)

	rep.Append(a)
	rep.Append(b)

	assert.Equal(t, []int64{2, 3}, rep.RelatedIDs())
	assert.Equal(t, 10.0, rep.SNR, "scalar fields are left untouched")
	assert.Empty(t, a.Related)
}

func TestCandidate_CountAssoc(t *testing.T) {
	leaf1 := &Candidate{ID: 4}
	leaf2 := &Candidate{ID: 5}
	mid := &Candidate{ID: 2, Related: []*Candidate{leaf1, leaf2}}
	top := &Candidate{ID: 1, Related: []*Candidate{mid, {ID: 3}}}

	assert.Equal(t, 0, leaf1.CountAssoc())
	assert.Equal(t, 2, mid.CountAssoc())
	assert.Equal(t, 4, top.CountAssoc())
}

func TestCandidate_Period(t *testing.T) {
	c := &Candidate{Freq: 4}
	assert.InDelta(t, 0.25, c.Period(), 1e-12)
}

func TestCandidate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		c       Candidate
		wantErr string
	}{
		{"valid", Candidate{Freq: 1, SNR: 5}, ""},
		{"zero frequency", Candidate{Freq: 0, SNR: 5}, "frequency must be positive"},
		{"negative frequency", Candidate{Freq: -3, SNR: 5}, "frequency must be positive"},
		{"NaN frequency", Candidate{Freq: math.NaN(), SNR: 5}, "frequency must be positive"},
		{"infinite frequency", Candidate{Freq: math.Inf(1), SNR: 5}, "frequency must be positive"},
		{"NaN significance", Candidate{Freq: 1, SNR: math.NaN()}, "significance must be a number"},
		{"negative harmonic number", Candidate{Freq: 1, NH: -1}, "harmonic number must not be negative"},
		{"largest harmonic number", Candidate{Freq: 1, NH: MaxHarmonicNumber}, ""},
		{"harmonic number too large", Candidate{Freq: 1, NH: MaxHarmonicNumber + 1}, "harmonic number must be at most 16"},
		{"harmonic number past the shift width", Candidate{Freq: 1, NH: 63}, "harmonic number must be at most 16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)

				return
			}

			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
