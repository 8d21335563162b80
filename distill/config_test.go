// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package distill

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	p, err := cfg.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{StageHarmonic, StageAcceleration, StageDM}, p.Stages())
	assert.Equal(t, "Config{KeepRelated: true, MaxProcs: 0, Stages: [harmonic/per_dm, acceleration/per_dm, dm]}", cfg.String())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "negative max procs",
			mutate:  func(c *Config) { c.MaxProcs = -1 },
			wantErr: "max_procs cannot be negative",
		},
		{
			name:    "no stages",
			mutate:  func(c *Config) { c.Stages = nil },
			wantErr: "at least one stage is required",
		},
		{
			name: "duplicated names",
			mutate: func(c *Config) {
				c.Stages = append(c.Stages, StageConfig{Type: StageDM, Tolerance: 0.001})
			},
			wantErr: `duplicated stage name "dm"`,
		},
		{
			name:    "unknown scope",
			mutate:  func(c *Config) { c.Stages[0].Scope = "per_beam" },
			wantErr: `unknown scope "per_beam"`,
		},
		{
			name:    "no harmonics",
			mutate:  func(c *Config) { c.Stages[0].MaxHarmonics = 0 },
			wantErr: "max_harmonics must be positive",
		},
		{
			name:    "no observation length",
			mutate:  func(c *Config) { c.Stages[1].TObs = 0 },
			wantErr: "tobs must be positive",
		},
		{
			name:    "missing type",
			mutate:  func(c *Config) { c.Stages[2].Type = "" },
			wantErr: "missing stage type",
		},
		{
			name:    "unknown type",
			mutate:  func(c *Config) { c.Stages[2].Type = "boxcar" },
			wantErr: `unknown stage type "boxcar"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			_, err = cfg.Build()
			require.Error(t, err)
		})
	}
}

func TestConfig_RenamedStagesCanRepeatAType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stages = append(cfg.Stages, StageConfig{Name: "dm_wide", Type: StageDM, Tolerance: 0.01})

	p, err := cfg.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{StageHarmonic, StageAcceleration, StageDM, "dm_wide"}, p.Stages())
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "distill.yaml")
	content := `
keep_related: false
max_procs: 3
stages:
  - type: polynomial
    scope: per_dm
    freq_tolerance: 0.0001
    acc_tolerance: 0.05
    jerk_tolerance: 0.2
  - name: final
    type: dm
    tolerance: 0.0005
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.False(t, cfg.KeepRelated)
	assert.Equal(t, 3, cfg.MaxProcs)
	require.Len(t, cfg.Stages, 2)
	assert.Equal(t, StageConfig{
		Type:          StagePolynomial,
		Scope:         ScopePerDM,
		FreqTolerance: 0.0001,
		AccTolerance:  0.05,
		JerkTolerance: 0.2,
	}, cfg.Stages[0])
	assert.Equal(t, "final", cfg.Stages[1].StageName())

	p, err := cfg.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{StagePolynomial, "final"}, p.Stages())
	assert.False(t, p.stages[0].Distiller.KeepRelated())
	assert.Equal(t, ScopeGlobal, p.stages[1].Scope)
}

func TestLoadConfigFile_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "distill.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_procs: 2\n"), 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	expected := DefaultConfig()
	expected.MaxProcs = 2
	assert.Equal(t, expected, cfg)
}

func TestLoadConfigFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfigFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("stages: [\n"), 0o600))
	_, err = LoadConfigFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("stages:\n  - type: boxcar\n"), 0o600))
	_, err = LoadConfigFile(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DISTILL_KEEP_RELATED", "false")
	t.Setenv("DISTILL_MAX_PROCS", "4")
	t.Setenv("DISTILL_TOBS", "1073.741824")

	base := DefaultConfig()

	cfg, err := ConfigFromEnv(base)
	require.NoError(t, err)

	assert.False(t, cfg.KeepRelated)
	assert.Equal(t, 4, cfg.MaxProcs)
	assert.InDelta(t, 1073.741824, cfg.Stages[1].TObs, 1e-9)

	// The caller's stages are left alone.
	assert.InDelta(t, DefaultTObs, base.Stages[1].TObs, 1e-9)
}

func TestConfigFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"DISTILL_KEEP_RELATED", "perhaps"},
		{"DISTILL_MAX_PROCS", "four"},
		{"DISTILL_MAX_PROCS", "-2"},
		{"DISTILL_TOBS", "long"},
		{"DISTILL_TOBS", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := ConfigFromEnv(DefaultConfig())
			require.Error(t, err)
		})
	}
}
