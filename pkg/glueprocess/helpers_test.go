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

package glueprocess

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dispenso/gluecell/internal/fsm"
	"github.com/dispenso/gluecell/pkg/broker"
	"github.com/dispenso/gluecell/pkg/config"
	"github.com/dispenso/gluecell/pkg/gluecell"
	"github.com/dispenso/gluecell/pkg/service"
	"github.com/dispenso/gluecell/pkg/service/sim"
)

// fastGlueDefaults shrinks the hardware settling delays so tests do not
// spend wall-clock time in them.
func fastGlueDefaults() config.GlueDefaults {
	return config.GlueDefaults{
		MotorSpeed:               10000,
		ForwardRampSteps:         1,
		InitialRampSpeed:         5000,
		InitialRampSpeedDuration: time.Millisecond,
		SpeedReverse:             1000,
		ReverseDuration:          time.Millisecond,
		ReverseRampSteps:         1,
		FanSpeed:                 2000,
		GeneratorToPumpDelay:     time.Millisecond,
		PumpToGeneratorDelay:     time.Millisecond,
	}
}

func fastProcessConfig() config.ProcessConfig {
	return config.ProcessConfig{
		UseSegmentSettings:        true,
		TurnOffPumpBetweenPaths:   true,
		AdjustPumpSpeedWhileSpray: true,
		TickDelay:                 time.Millisecond,
		StatePollInterval:         time.Millisecond,
		PositionWaitBudget:        5 * time.Second,
	}
}

func testCells() *gluecell.Registry {
	return gluecell.NewRegistry([]config.CellConfig{
		{GlueType: "Type A", MotorAddress: 7},
		{GlueType: "Type B", MotorAddress: 9},
	})
}

// typeASettings is a representative merged segment settings map.
func typeASettings() Settings {
	return Settings{
		KeyGlueType:                 "Type A",
		KeyVelocity:                 100.0,
		KeyAcceleration:             50.0,
		KeyMotorSpeed:               8000.0,
		KeyForwardRampSteps:         2.0,
		KeyInitialRampSpeed:         4000.0,
		KeyInitialRampSpeedDuration: 0.001,
		KeySpeedReverse:             900.0,
		KeyReverseDuration:          0.001,
		KeyReverseRampSteps:         1.0,
		KeyFanSpeed:                 1500.0,
	}
}

// testEnv wires a context with simulated hardware and a bare machine for
// exercising handlers directly.
type testEnv struct {
	ctx    *ExecutionContext
	robot  *sim.Robot
	glue   *sim.GlueHardware
	broker *broker.Broker
	deps   handlerDeps
}

func newTestEnv(t *testing.T, paths []PathSegment) *testEnv {
	t.Helper()

	cfg := fastProcessConfig()

	b := broker.New()
	robot := sim.NewRobot(sim.NewPublisher(b))
	robot.PollInterval = time.Millisecond
	robot.WaitBudget = cfg.PositionWaitBudget
	glue := sim.NewGlueHardware()

	defaults := fastGlueDefaults()

	c := NewExecutionContext()
	c.Robot = robot
	c.Glue = glue
	c.Cells = testCells()
	c.Paths = paths
	c.Pump = NewPumpController(true, &defaults)

	machine, err := fsm.NewBuilder[*ExecutionContext]().
		WithID("test").
		WithInitialState(StateIdle).
		WithTransitionRules(TransitionRules()).
		WithRegistry(fsm.NewRegistry[*ExecutionContext]()).
		WithContext(c).
		WithErrorState(StateError).
		WithLogger(zap.NewNop().Sugar()).
		Build()
	require.NoError(t, err)
	c.Machine = machine

	return &testEnv{
		ctx:    c,
		robot:  robot,
		glue:   glue,
		broker: b,
		deps: handlerDeps{
			log:     zap.NewNop().Sugar(),
			cfg:     cfg,
			globals: globalSettings(defaults),
		},
	}
}

// newTestOperation builds a fully wired operation on simulated hardware.
func newTestOperation(t *testing.T) (*GlueDispensingOperation, *sim.Robot, *sim.GlueHardware, *broker.Broker) {
	t.Helper()

	cfg := config.Config{Process: fastProcessConfig(), Glue: fastGlueDefaults()}

	b := broker.New()
	robot := sim.NewRobot(sim.NewPublisher(b))
	robot.PollInterval = time.Millisecond
	robot.WaitBudget = cfg.Process.PositionWaitBudget
	glue := sim.NewGlueHardware()

	op, err := NewOperation(cfg, robot, glue, testCells(), b)
	require.NoError(t, err)
	return op, robot, glue, b
}

func point(x, y, z float64) service.Position {
	return service.Position{x, y, z, 0, 0, 0}
}
