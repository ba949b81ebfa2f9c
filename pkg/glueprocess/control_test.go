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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dispenso/gluecell/internal/fsm"
	"github.com/dispenso/gluecell/pkg/broker"
	"github.com/dispenso/gluecell/pkg/procerror"
	"github.com/dispenso/gluecell/pkg/service"
	"github.com/dispenso/gluecell/pkg/service/sim"
)

// stallingRobot simulates an arm whose motion-stop call fails.
type stallingRobot struct {
	*sim.Robot
}

func (r *stallingRobot) StopMotion() error {
	return errors.New("stop refused")
}

func nopDeps() handlerDeps {
	return handlerDeps{log: zap.NewNop().Sugar(), cfg: fastProcessConfig()}
}

func TestPauseWithoutMachine(t *testing.T) {
	c := NewExecutionContext()

	result, err := pauseOperation(nil, c, nopDeps())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "State machine not initialized", result.Message)
}

func TestPauseFromIdleRejected(t *testing.T) {
	env := newTestEnv(t, nil)

	result, err := pauseOperation(nil, env.ctx, env.deps)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Cannot pause from current state", result.Message)
	assert.Equal(t, StateIdle, env.ctx.Machine.Current())
	assert.Zero(t, env.glue.GeneratorOffCalls)
	assert.Zero(t, env.glue.MotorOffCalls)
}

func TestPauseShutsDownPump(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ctx.Machine.SetStateForTesting(StateSendingPathPoints)
	env.ctx.SetCurrentSettings(typeASettings())

	result, err := pauseOperation(nil, env.ctx, env.deps)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Operation paused", result.Message)
	assert.Equal(t, StatePaused, env.ctx.Machine.Current())
	assert.Equal(t, StateSendingPathPoints, env.ctx.PausedFromState())
	assert.Equal(t, 1, env.glue.MotorOffCalls)
	assert.Equal(t, 1, env.glue.GeneratorOffCalls)
}

func TestPauseInvalidMotorAddress(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ctx.Machine.SetStateForTesting(StateSendingPathPoints)
	settings := typeASettings()
	settings[KeyGlueType] = "Unknown Glue"
	env.ctx.SetCurrentSettings(settings)

	result, err := pauseOperation(nil, env.ctx, env.deps)
	require.Error(t, err)
	assert.True(t, procerror.IsPermanent(err))
	assert.False(t, result.Success)
	assert.Equal(t, "Invalid motor address for current path", result.Message)
	// The transition already happened; only the pump shutdown was skipped.
	assert.Equal(t, StatePaused, env.ctx.Machine.Current())
	assert.Zero(t, env.glue.MotorOffCalls)
	assert.Zero(t, env.glue.GeneratorOffCalls)
}

func TestPauseWhilePausedResumes(t *testing.T) {
	op, _, _, _ := newTestOperation(t)
	op.ctx.Paths = []PathSegment{{Points: []service.Position{point(1, 0, 0)}}}
	op.machine.SetStateForTesting(StatePaused)

	result, err := op.Pause()
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Operation resumed", result.Message)
	assert.Equal(t, StateStarting, op.State())
	assert.True(t, op.ctx.IsResuming())
}

func TestPauseFromEveryPausableState(t *testing.T) {
	pausable := []fsm.State{
		StateStarting,
		StateMovingToFirstPoint,
		StateExecutingPath,
		StateInitialPumpBoost,
		StateStartingPumpAdjust,
		StateSendingPathPoints,
		StateWaitPathCompletion,
		StateTransitionBetween,
	}

	for _, from := range pausable {
		t.Run(string(from), func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.ctx.Machine.SetStateForTesting(from)
			env.ctx.SetCurrentSettings(typeASettings())

			result, err := pauseOperation(nil, env.ctx, env.deps)
			require.NoError(t, err)
			require.True(t, result.Success)
			assert.Equal(t, StatePaused, env.ctx.Machine.Current())
			assert.Equal(t, from, env.ctx.PausedFromState())
		})
	}
}

func TestPauseToleratesRobotStopFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ctx.Robot = &stallingRobot{Robot: env.robot}
	env.ctx.Machine.SetStateForTesting(StateSendingPathPoints)
	env.ctx.SetCurrentSettings(typeASettings())

	result, err := pauseOperation(nil, env.ctx, env.deps)
	require.NoError(t, err)
	assert.True(t, result.Success)
	// The pump shutdown proceeds despite the failed motion stop.
	assert.Equal(t, 1, env.glue.MotorOffCalls)
	assert.Equal(t, 1, env.glue.GeneratorOffCalls)
}

func TestPauseDoesNotClearMotorStarted(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ctx.Machine.SetStateForTesting(StateWaitPathCompletion)
	env.ctx.SetCurrentSettings(typeASettings())
	env.ctx.SetMotorStarted(true)

	result, err := pauseOperation(nil, env.ctx, env.deps)
	require.NoError(t, err)
	require.True(t, result.Success)
	// The flag survives the pause so the next resume skips the boost ramp.
	assert.True(t, env.ctx.MotorStarted())
}

func TestResumeWithoutMachine(t *testing.T) {
	c := NewExecutionContext()

	result, err := resumeOperation(c, nopDeps())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "State machine not initialized", result.Message)
}

func TestResumeNotPaused(t *testing.T) {
	env := newTestEnv(t, []PathSegment{{Points: []service.Position{point(1, 0, 0)}}})

	result, err := resumeOperation(env.ctx, env.deps)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Not in paused state", result.Message)
}

func TestResumeWithoutContext(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ctx.Machine.SetStateForTesting(StatePaused)

	result, err := resumeOperation(env.ctx, env.deps)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "No execution context to resume", result.Message)
	assert.Equal(t, StatePaused, env.ctx.Machine.Current())
}

func TestResumeRoutesToStarting(t *testing.T) {
	env := newTestEnv(t, []PathSegment{{Points: []service.Position{point(1, 0, 0)}}})
	env.ctx.Machine.SetStateForTesting(StatePaused)
	env.ctx.SaveProgress(0, 0)

	result, err := resumeOperation(env.ctx, env.deps)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Operation resumed", result.Message)
	assert.Equal(t, StateStarting, env.ctx.Machine.Current())
	assert.True(t, env.ctx.IsResuming())
}

func TestResumeRejectedTransitionKeepsResumingFlag(t *testing.T) {
	env := newTestEnv(t, []PathSegment{{Points: []service.Position{point(1, 0, 0)}}})

	// A table with no PAUSED to STARTING route, standing in for a concurrent
	// stop landing between the paused-state guard and the transition.
	machine, err := fsm.NewBuilder[*ExecutionContext]().
		WithID("test").
		WithInitialState(StatePaused).
		WithTransitionRules(fsm.TransitionRules{
			StatePaused: {StateStopped},
		}).
		WithRegistry(fsm.NewRegistry[*ExecutionContext]()).
		WithContext(env.ctx).
		WithErrorState(StateError).
		WithLogger(zap.NewNop().Sugar()).
		Build()
	require.NoError(t, err)
	env.ctx.Machine = machine

	result, err := resumeOperation(env.ctx, env.deps)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Invalid state transition", result.Message)
	assert.Equal(t, StatePaused, env.ctx.Machine.Current())
	// The resuming flag is set before the transition attempt and stays set
	// when the transition is rejected.
	assert.True(t, env.ctx.IsResuming())
}

func TestStopWithoutMachine(t *testing.T) {
	c := NewExecutionContext()

	result, err := stopOperation(c, nopDeps())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "State machine not initialized", result.Message)
}

func TestStopFromIdleRejected(t *testing.T) {
	env := newTestEnv(t, nil)

	result, err := stopOperation(env.ctx, env.deps)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Cannot stop from current state", result.Message)
	assert.Zero(t, env.glue.GeneratorOffCalls)
	assert.False(t, env.ctx.OperationJustCompleted())
}

func TestStopShutsDownHardwareTwice(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ctx.Machine.SetStateForTesting(StateSendingPathPoints)
	env.ctx.SetCurrentSettings(typeASettings())
	env.robot.SetTrajectoryBroadcast(true)

	stopped := env.broker.Subscribe(broker.TopicTrajectoryStop)

	result, err := stopOperation(env.ctx, env.deps)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Operation stopped", result.Message)
	assert.Equal(t, StateStopped, env.ctx.Machine.Current())
	assert.True(t, env.ctx.OperationJustCompleted())

	// The shutdown contract repeats the pump and generator off calls.
	assert.Equal(t, 2, env.glue.MotorOffCalls)
	assert.Equal(t, 2, env.glue.GeneratorOffCalls)

	assert.False(t, env.robot.TrajectoryBroadcast())
	select {
	case msg := <-stopped:
		assert.Equal(t, broker.TopicTrajectoryStop, msg.Topic)
	default:
		t.Fatal("expected a trajectory stop announcement")
	}
}

func TestStopInvalidMotorAddress(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ctx.Machine.SetStateForTesting(StateSendingPathPoints)
	settings := typeASettings()
	settings[KeyGlueType] = "Unknown Glue"
	env.ctx.SetCurrentSettings(settings)

	result, err := stopOperation(env.ctx, env.deps)
	require.Error(t, err)
	assert.True(t, procerror.IsPermanent(err))
	assert.False(t, result.Success)
	assert.Equal(t, "Invalid motor address for current path", result.Message)
	// The generator is still shut off once before the error surfaces.
	assert.Equal(t, 1, env.glue.GeneratorOffCalls)
	assert.Zero(t, env.glue.MotorOffCalls)
}

func TestStopToleratesRobotStopFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ctx.Robot = &stallingRobot{Robot: env.robot}
	env.ctx.Machine.SetStateForTesting(StateSendingPathPoints)
	env.ctx.SetCurrentSettings(typeASettings())

	result, err := stopOperation(env.ctx, env.deps)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, env.glue.MotorOffCalls)
	assert.Equal(t, 2, env.glue.GeneratorOffCalls)
}

func TestStopDoesNotClearMotorStarted(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ctx.Machine.SetStateForTesting(StateWaitPathCompletion)
	env.ctx.SetCurrentSettings(typeASettings())
	env.ctx.SetMotorStarted(true)

	result, err := stopOperation(env.ctx, env.deps)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.True(t, env.ctx.MotorStarted())
}
