// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package distill

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Stage types.
const (
	StageHarmonic      = "harmonic"
	StageAcceleration  = "acceleration"
	StageCircularOrbit = "circular_orbit"
	StageDM            = "dm"
	StagePolynomial    = "polynomial"
)

// Stage scopes.
const (
	// ScopeGlobal distills all the candidates at once.
	ScopeGlobal = "global"
	// ScopePerDM distills each DM trial on its own, concurrently.
	ScopePerDM = "per_dm"
)

const (
	// DefaultTolerance is the fractional frequency tolerance of the default chain.
	DefaultTolerance = 0.0001
	// DefaultMaxHarmonics is the highest harmonic tested by default.
	DefaultMaxHarmonics = 16
	// DefaultTObs is 2^23 samples of 64us.
	DefaultTObs = 536.870912
)

// StageConfig describes one distillation stage.
type StageConfig struct {
	// Name identifies the stage in logs and storage. Defaults to Type.
	Name  string `yaml:"name,omitempty" json:"name,omitempty"`
	Type  string `yaml:"type" json:"type"`
	Scope string `yaml:"scope,omitempty" json:"scope,omitempty"`

	// Tolerance is used by the harmonic, acceleration, circular_orbit and dm stages.
	Tolerance float64 `yaml:"tolerance" json:"tolerance"`

	// Harmonic stage.
	MaxHarmonics        int  `yaml:"max_harmonics,omitempty" json:"max_harmonics,omitempty"`
	FractionalHarmonics bool `yaml:"fractional_harmonics,omitempty" json:"fractional_harmonics,omitempty"`

	// Acceleration stage, observation length in seconds.
	TObs float64 `yaml:"tobs,omitempty" json:"tobs,omitempty"`

	// Polynomial stage.
	FreqTolerance float64 `yaml:"freq_tolerance,omitempty" json:"freq_tolerance,omitempty"`
	AccTolerance  float64 `yaml:"acc_tolerance,omitempty" json:"acc_tolerance,omitempty"`
	JerkTolerance float64 `yaml:"jerk_tolerance,omitempty" json:"jerk_tolerance,omitempty"`
}

// StageName returns Name, or Type when no name was given.
func (s StageConfig) StageName() string {
	if s.Name != "" {
		return s.Name
	}

	return s.Type
}

// Config holds the configuration of a distillation pipeline.
type Config struct {
	// KeepRelated records absorbed candidates on their representative.
	KeepRelated bool `yaml:"keep_related" json:"keep_related"`

	// MaxProcs bounds the goroutines used by per_dm stages. 0 means the
	// number of CPUs.
	MaxProcs int `yaml:"max_procs" json:"max_procs"`

	// Stages run in order, each one consuming the previous output.
	Stages []StageConfig `yaml:"stages" json:"stages"`
}

// DefaultConfig returns the usual search chain: harmonics and acceleration
// trials are folded within each DM trial, then DM trials are folded together.
func DefaultConfig() Config {
	return Config{
		KeepRelated: true,
		MaxProcs:    0,
		Stages: []StageConfig{
			{
				Type:         StageHarmonic,
				Scope:        ScopePerDM,
				Tolerance:    DefaultTolerance,
				MaxHarmonics: DefaultMaxHarmonics,
			},
			{
				Type:      StageAcceleration,
				Scope:     ScopePerDM,
				Tolerance: DefaultTolerance,
				TObs:      DefaultTObs,
			},
			{
				Type:      StageDM,
				Scope:     ScopeGlobal,
				Tolerance: DefaultTolerance,
			},
		},
	}
}

// Validate checks if the configuration has valid values. Tolerances are not
// range checked: an odd tolerance only changes how much gets absorbed.
func (c Config) Validate() error {
	if c.MaxProcs < 0 {
		return fmt.Errorf("max_procs cannot be negative (got %d)", c.MaxProcs)
	}

	if len(c.Stages) == 0 {
		return fmt.Errorf("at least one stage is required")
	}

	names := make(map[string]bool, len(c.Stages))

	for i, s := range c.Stages {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("stage %d: %w", i, err)
		}

		if names[s.StageName()] {
			return fmt.Errorf("stage %d: duplicated stage name %q", i, s.StageName())
		}

		names[s.StageName()] = true
	}

	return nil
}

// Validate checks a single stage.
func (s StageConfig) Validate() error {
	switch s.Scope {
	case "", ScopeGlobal, ScopePerDM:
	default:
		return fmt.Errorf("unknown scope %q", s.Scope)
	}

	switch s.Type {
	case StageHarmonic:
		if s.MaxHarmonics < 1 {
			return fmt.Errorf("max_harmonics must be positive (got %d)", s.MaxHarmonics)
		}
	case StageAcceleration:
		if s.TObs <= 0 {
			return fmt.Errorf("tobs must be positive (got %v)", s.TObs)
		}
	case StageCircularOrbit, StageDM, StagePolynomial:
	case "":
		return fmt.Errorf("missing stage type")
	default:
		return fmt.Errorf("unknown stage type %q", s.Type)
	}

	return nil
}

// Distiller builds the distiller described by s.
func (s StageConfig) Distiller(keepRelated bool) (*Distiller, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var d *Distiller

	switch s.Type {
	case StageHarmonic:
		d = NewHarmonicDistiller(s.Tolerance, s.MaxHarmonics, keepRelated, s.FractionalHarmonics)
	case StageAcceleration:
		d = NewAccelerationDistiller(s.TObs, s.Tolerance, keepRelated)
	case StageCircularOrbit:
		d = NewCircularOrbitDistiller(s.Tolerance, keepRelated)
	case StageDM:
		d = NewDMDistiller(s.Tolerance, keepRelated)
	case StagePolynomial:
		d = NewPolynomialDistiller(s.FreqTolerance, s.AccTolerance, s.JerkTolerance, keepRelated)
	}

	d.name = s.StageName()

	return d, nil
}

// String returns a human-readable representation of the config.
func (c Config) String() string {
	ret := fmt.Sprintf("Config{KeepRelated: %t, MaxProcs: %d, Stages: [", c.KeepRelated, c.MaxProcs)

	for i, s := range c.Stages {
		if i > 0 {
			ret += ", "
		}

		ret += s.StageName()
		if s.Scope == ScopePerDM {
			ret += "/" + ScopePerDM
		}
	}

	return ret + "]}"
}

// LoadConfigFile reads a YAML pipeline description. Keys absent from the
// file keep their DefaultConfig value; a stages list replaces the default
// chain entirely.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) // #nosec G304 - path is provided by the operator
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	return cfg, nil
}

// ConfigFromEnv applies environment overrides to cfg.
//
// Environment variables:
//   - DISTILL_KEEP_RELATED: record absorbed candidates (bool)
//   - DISTILL_MAX_PROCS: goroutines used by per_dm stages
//   - DISTILL_TOBS: observation length for every acceleration stage, in seconds
//
// Returns an error if any environment variable has an invalid value.
func ConfigFromEnv(cfg Config) (Config, error) {
	cfg.Stages = append([]StageConfig(nil), cfg.Stages...)

	if err := parseEnvBool("DISTILL_KEEP_RELATED", &cfg.KeepRelated); err != nil {
		return cfg, err
	}

	if err := parseEnvInt("DISTILL_MAX_PROCS", &cfg.MaxProcs); err != nil {
		return cfg, err
	}

	tobs := 0.0
	if err := parseEnvFloat("DISTILL_TOBS", &tobs); err != nil {
		return cfg, err
	}

	if tobs != 0 {
		cfg.SetTObs(tobs)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}

	return cfg, nil
}

// SetTObs sets the observation length of every acceleration stage.
func (c *Config) SetTObs(tobs float64) {
	for i := range c.Stages {
		if c.Stages[i].Type == StageAcceleration {
			c.Stages[i].TObs = tobs
		}
	}
}

// parseEnvFloat parses a float64 from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	*dest = parsed

	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	*dest = parsed

	return nil
}

// parseEnvBool parses a bool from an environment variable
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	*dest = parsed

	return nil
}
