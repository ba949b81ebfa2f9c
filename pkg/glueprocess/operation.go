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
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dispenso/gluecell/internal/fsm"
	"github.com/dispenso/gluecell/pkg/broker"
	"github.com/dispenso/gluecell/pkg/config"
	"github.com/dispenso/gluecell/pkg/gluecell"
	"github.com/dispenso/gluecell/pkg/logger"
	"github.com/dispenso/gluecell/pkg/metrics"
	"github.com/dispenso/gluecell/pkg/service"
)

// GlueDispensingOperation owns one dispensing cell's process: the state
// machine, the execution context shared by the handlers, and the pump
// controller. Start blocks on the machine loop, so callers run it on a
// worker goroutine; Pause, Resume and Stop are safe to call from any other
// goroutine while the loop runs.
type GlueDispensingOperation struct {
	cfg     config.Config
	deps    handlerDeps
	ctx     *ExecutionContext
	machine *fsm.Machine[*ExecutionContext]

	mu    sync.Mutex
	runID string

	log *zap.SugaredLogger
}

// NewOperation wires the full process for one cell. b may be nil when no
// state announcements are wanted.
func NewOperation(
	cfg config.Config,
	robot service.RobotService,
	glue service.GlueHardware,
	cells *gluecell.Registry,
	b *broker.Broker,
) (*GlueDispensingOperation, error) {
	log := logger.For(logger.ComponentGlueProcess)

	ctx := NewExecutionContext()
	ctx.Robot = robot
	ctx.Glue = glue
	ctx.Cells = cells
	ctx.Pump = NewPumpController(cfg.Process.UseSegmentSettings, &cfg.Glue)

	op := &GlueDispensingOperation{
		cfg: cfg,
		ctx: ctx,
		log: log,
		deps: handlerDeps{
			log:     log,
			cfg:     cfg.Process,
			globals: globalSettings(cfg.Glue),
		},
	}

	if dir := cfg.Process.DebugCaptureDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating debug capture dir %s: %w", dir, err)
		}
	}

	builder := fsm.NewBuilder[*ExecutionContext]().
		WithID("glue-process").
		WithInitialState(StateIdle).
		WithTransitionRules(TransitionRules()).
		WithRegistry(op.stateRegistry()).
		WithContext(ctx).
		WithErrorState(StateError).
		WithLogger(logger.For(logger.ComponentStateMachine))
	if b != nil {
		builder = builder.WithPublisher(b, broker.TopicProcessState)
	}

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("building glue process state machine: %w", err)
	}

	op.machine = machine
	ctx.Machine = machine
	metrics.InitErrorCounter(metrics.ComponentGlueProcess, "glue-process")

	return op, nil
}

// globalSettings projects the configured glue defaults into the settings
// keyspace so segment values can be merged over them.
func globalSettings(g config.GlueDefaults) Settings {
	return Settings{
		KeyMotorSpeed:               g.MotorSpeed,
		KeyForwardRampSteps:         float64(g.ForwardRampSteps),
		KeyInitialRampSpeed:         g.InitialRampSpeed,
		KeyInitialRampSpeedDuration: g.InitialRampSpeedDuration.Seconds(),
		KeySpeedReverse:             g.SpeedReverse,
		KeyReverseDuration:          g.ReverseDuration.Seconds(),
		KeyReverseRampSteps:         float64(g.ReverseRampSteps),
		KeyFanSpeed:                 g.FanSpeed,
	}
}

// stateRegistry binds every state to its handler and attaches the debug
// snapshot hooks.
func (o *GlueDispensingOperation) stateRegistry() *fsm.Registry[*ExecutionContext] {
	handlers := map[fsm.State]fsm.Handler[*ExecutionContext]{
		StateIdle:               o.handleIdleState,
		StateStarting:           o.withDeps(handleStartingState),
		StateMovingToFirstPoint: o.withDeps(handleMovingToFirstPoint),
		// EXECUTING_PATH dispatches straight into the pump boost.
		StateExecutingPath: func(c *ExecutionContext) (fsm.State, error) {
			return StateInitialPumpBoost, nil
		},
		StateInitialPumpBoost:   o.withDeps(handlePumpInitialBoost),
		StateStartingPumpAdjust: o.withDeps(handleStartPumpAdjustment),
		StateSendingPathPoints:  o.withDeps(handleSendPathToRobot),
		StateWaitPathCompletion: o.withDeps(handleWaitForPathCompletion),
		StateTransitionBetween:  o.withDeps(handleTransitionBetweenPaths),
		StatePaused: func(c *ExecutionContext) (fsm.State, error) {
			return "", nil
		},
		StateStopped: func(c *ExecutionContext) (fsm.State, error) {
			return StateCompleted, nil
		},
		StateCompleted: o.withDeps(handleCompletedState),
		StateError:     o.handleErrorState,
	}

	registry := fsm.NewRegistry[*ExecutionContext]()
	for state, handler := range handlers {
		state := state
		registry.Register(fsm.StateSpec[*ExecutionContext]{
			State:   state,
			Handler: handler,
			OnEnter: func(c *ExecutionContext) { o.captureDebug(string(state) + "_ENTER") },
			OnExit:  func(c *ExecutionContext) { o.captureDebug(string(state) + "_EXIT") },
		})
	}
	return registry
}

func (o *GlueDispensingOperation) withDeps(
	h func(*ExecutionContext, handlerDeps) (fsm.State, error),
) fsm.Handler[*ExecutionContext] {
	return func(c *ExecutionContext) (fsm.State, error) {
		return h(c, o.deps)
	}
}

// handleIdleState is truly idle; it only winds the loop down once a run has
// completed so Start returns to its caller.
func (o *GlueDispensingOperation) handleIdleState(c *ExecutionContext) (fsm.State, error) {
	if c.ConsumeOperationJustCompleted() {
		o.log.Debugw("operation finished, stopping execution loop", "runID", o.RunID())
		c.Machine.StopExecution()
	}
	return "", nil
}

// handleErrorState parks the machine in ERROR and stops the loop so the
// failure surfaces to the caller instead of spinning unsupervised.
func (o *GlueDispensingOperation) handleErrorState(c *ExecutionContext) (fsm.State, error) {
	o.log.Errorw("glue process entered error state", "runID", o.RunID(),
		"pathIndex", c.PathIndex(), "pointIndex", c.PointIndex())
	c.Machine.StopExecution()
	return "", nil
}

// State returns the machine's current state.
func (o *GlueDispensingOperation) State() fsm.State {
	return o.machine.Current()
}

// Context exposes the execution context for introspection and tests.
func (o *GlueDispensingOperation) Context() *ExecutionContext {
	return o.ctx
}

// RunID identifies the active dispensing run in logs and debug captures.
func (o *GlueDispensingOperation) RunID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runID
}

func (o *GlueDispensingOperation) newRunID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runID = uuid.NewString()
	return o.runID
}

// Start runs the dispensing process to a terminal state and blocks until the
// loop winds down. A fresh start resets the context; with resume true and a
// valid saved context the loop restarts from the paused snapshot instead.
func (o *GlueDispensingOperation) Start(paths []PathSegment, sprayOn, resume bool) OperationResult {
	if !resume || !o.ctx.HasValidContext() {
		o.ctx.Reset()
		o.ctx.Paths = paths
		o.ctx.SetSprayOn(sprayOn)

		runID := o.newRunID()
		o.log.Infow("starting glue dispensing", "runID", runID,
			"paths", len(paths), "sprayOn", sprayOn)

		// A machine parked in ERROR returns to IDLE for the fresh run.
		if o.machine.Current() == StateError {
			o.machine.Transition(StateIdle)
		}
		if o.machine.Current() == StateIdle {
			o.machine.Transition(StateStarting)
		}
	} else {
		o.log.Infow("restarting execution from saved context", "runID", o.RunID(),
			"pathIndex", o.ctx.PathIndex(), "pointIndex", o.ctx.PointIndex())
	}

	o.machine.StartExecution(o.cfg.Process.TickDelay)

	if o.machine.Current() == StateError {
		return resultFail("Execution error")
	}
	return resultOK("Execution completed")
}

// Pause suspends the run, shutting the pump and generator down. Calling it
// while already paused resumes instead.
func (o *GlueDispensingOperation) Pause() (OperationResult, error) {
	return pauseOperation(o, o.ctx, o.deps)
}

// Resume routes a paused machine back to STARTING. When the execution loop
// has already wound down, the caller follows up with Start(nil, false, true)
// to spin it up again from the saved snapshot.
func (o *GlueDispensingOperation) Resume() (OperationResult, error) {
	return resumeOperation(o.ctx, o.deps)
}

// Stop aborts the run and shuts the hardware down.
func (o *GlueDispensingOperation) Stop() (OperationResult, error) {
	return stopOperation(o.ctx, o.deps)
}

// captureDebug writes a context snapshot to the configured capture
// directory. Failures are logged, never propagated.
func (o *GlueDispensingOperation) captureDebug(phase string) {
	dir := o.cfg.Process.DebugCaptureDir
	if dir == "" {
		return
	}

	data, err := o.ctx.DebugSnapshot(phase)
	if err != nil {
		o.log.Errorw("failed to serialize debug context", "phase", phase, "error", err)
		return
	}

	name := fmt.Sprintf("%s_%s_%s.json", time.Now().Format("20060102_150405.000000"), o.RunID(), phase)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		o.log.Errorw("failed to write debug context", "phase", phase, "error", err)
	}
}
