// Copyright 2026 Dispenso Robotics GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration of the glue cell runtime.
type Config struct {
	Process ProcessConfig `yaml:"process"`
	Glue    GlueDefaults  `yaml:"glue"`
	Cells   []CellConfig  `yaml:"cells"`

	MetricsPort int `yaml:"metricsPort,omitempty"` // Port to expose metrics on, 0 disables the endpoint
}

// ProcessConfig holds the state machine and handler knobs.
type ProcessConfig struct {
	// UseSegmentSettings selects per-path segment settings over the global
	// glue defaults when driving the pump.
	UseSegmentSettings bool `yaml:"useSegmentSettings"`
	// TurnOffPumpBetweenPaths stops the pump while the robot travels between
	// two trajectory segments.
	TurnOffPumpBetweenPaths bool `yaml:"turnOffPumpBetweenPaths"`
	// AdjustPumpSpeedWhileSpray runs the pump adjustment task that tunes
	// motor speed to robot velocity during path execution.
	AdjustPumpSpeedWhileSpray bool `yaml:"adjustPumpSpeedWhileSpray"`

	// TickDelay is the pause between two state handler invocations.
	TickDelay time.Duration `yaml:"tickDelay"`
	// StatePollInterval bounds how often blocking waits re-check the
	// machine state and cancellation tokens.
	StatePollInterval time.Duration `yaml:"statePollInterval"`
	// PositionWaitBudget is the wall-clock retry budget for waiting on the
	// robot to reach a target position.
	PositionWaitBudget time.Duration `yaml:"positionWaitBudget"`

	// DebugCaptureDir enables execution context snapshots when non-empty.
	DebugCaptureDir string `yaml:"debugCaptureDir,omitempty"`
}

// GlueDefaults are the global pump/generator settings used when segment
// settings are disabled or absent.
type GlueDefaults struct {
	MotorSpeed               float64       `yaml:"motorSpeed"`
	ForwardRampSteps         int           `yaml:"forwardRampSteps"`
	InitialRampSpeed         float64       `yaml:"initialRampSpeed"`
	InitialRampSpeedDuration time.Duration `yaml:"initialRampSpeedDuration"`
	SpeedReverse             float64       `yaml:"speedReverse"`
	ReverseDuration          time.Duration `yaml:"reverseDuration"`
	ReverseRampSteps         int           `yaml:"reverseRampSteps"`
	FanSpeed                 float64       `yaml:"fanSpeed"`

	// GeneratorToPumpDelay is the settling time between generator-on and
	// pump-on. PumpToGeneratorDelay is the settling time between pump-off
	// and generator-off. Both are physical safety requirements.
	GeneratorToPumpDelay time.Duration `yaml:"generatorToPumpDelay"`
	PumpToGeneratorDelay time.Duration `yaml:"pumpToGeneratorDelay"`
}

// CellConfig describes one glue cell: which glue type it holds and the
// Modbus addresses of its actuators.
type CellConfig struct {
	GlueType         string `yaml:"glueType"`
	MotorAddress     int    `yaml:"motorAddress"`
	GeneratorAddress int    `yaml:"generatorAddress,omitempty"`
	FanAddress       int    `yaml:"fanAddress,omitempty"`
}

// DefaultConfig returns the configuration used when no file is provided.
func DefaultConfig() Config {
	return Config{
		Process: ProcessConfig{
			UseSegmentSettings:        true,
			TurnOffPumpBetweenPaths:   true,
			AdjustPumpSpeedWhileSpray: true,
			TickDelay:                 200 * time.Millisecond,
			StatePollInterval:         100 * time.Millisecond,
			PositionWaitBudget:        30 * time.Second,
		},
		Glue: GlueDefaults{
			MotorSpeed:               10000,
			ForwardRampSteps:         1,
			InitialRampSpeed:         5000,
			InitialRampSpeedDuration: time.Second,
			SpeedReverse:             1000,
			ReverseDuration:          time.Second,
			ReverseRampSteps:         1,
			GeneratorToPumpDelay:     500 * time.Millisecond,
			PumpToGeneratorDelay:     500 * time.Millisecond,
		},
	}
}

// Load reads and parses the configuration file at path, applying defaults
// for any omitted sections.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate rejects configurations that would make the process unsafe to run.
func (c Config) Validate() error {
	if c.Process.TickDelay <= 0 {
		return fmt.Errorf("process.tickDelay must be positive, got %s", c.Process.TickDelay)
	}
	if c.Process.StatePollInterval <= 0 {
		return fmt.Errorf("process.statePollInterval must be positive, got %s", c.Process.StatePollInterval)
	}
	seen := make(map[string]struct{}, len(c.Cells))
	for _, cell := range c.Cells {
		if cell.GlueType == "" {
			return fmt.Errorf("cell with motor address %d has no glue type", cell.MotorAddress)
		}
		if _, dup := seen[cell.GlueType]; dup {
			return fmt.Errorf("duplicate cell for glue type %q", cell.GlueType)
		}
		seen[cell.GlueType] = struct{}{}
	}
	return nil
}
