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

	"github.com/dispenso/gluecell/pkg/procerror"
)

// pauseOperation pauses the run, or resumes it when it is already paused so
// a double-click on the pause control toggles instead of deadlocking.
//
// Transition legality is checked before any hardware side effect: a rejected
// pause leaves the hardware untouched. The -1 motor address check happens
// after the transition and surfaces as a permanent error because dispensing
// cannot continue safely without knowing which motor to stop.
func pauseOperation(op *GlueDispensingOperation, c *ExecutionContext, deps handlerDeps) (OperationResult, error) {
	if c.Machine == nil {
		deps.log.Debugw("cannot pause, state machine not initialized")
		return resultFail("State machine not initialized"), nil
	}

	current := c.Machine.Current()
	if current == StatePaused {
		deps.log.Debugw("already paused, resuming operation")
		return op.Resume()
	}

	deps.log.Debugw("pausing operation", "from", current)

	if !c.Machine.Transition(StatePaused) {
		return resultFail("Cannot pause from current state"), nil
	}

	c.SetPausedFromState(current)

	// An active pump task notices PAUSED on its own and reports its progress
	// when it terminates; nothing blocks on it here.
	if task := c.PumpTask(); task != nil && !task.Finished() {
		deps.log.Debugw("pausing with active pump task, progress will be captured")
	}

	if err := c.Robot.StopMotion(); err != nil {
		// An energized pump with a stalled robot is the worse failure, so a
		// failed motion stop never blocks the pump shutdown below.
		deps.log.Debugw("error stopping robot on pause", "error", procerror.NewIgnoredError(err))
	}

	motorAddress := c.MotorAddressForCurrentPath()
	if motorAddress == -1 {
		deps.log.Debugw("invalid motor address for current path during pause")
		return resultFail("Invalid motor address for current path"),
			procerror.NewPermanentError(fmt.Errorf("invalid motor address for current path during pause: %d", motorAddress))
	}

	c.Pump.PumpOff(c, motorAddress, c.CurrentSettings())
	c.Glue.GeneratorOff()

	return resultOK("Operation paused"), nil
}
