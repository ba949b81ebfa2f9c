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

// stopOperation aborts the run. Unlike pause, the STOPPED transition gates
// the whole body: an illegal stop leaves hardware untouched.
//
// The pump-off and generator-off calls are issued twice on purpose. The
// underlying hardware call is not assumed authoritative on the first attempt;
// the shutdown contract is "turn off at least once, tolerate a repeat".
// When the motor address cannot be resolved, the generator is still turned
// off once before the error is returned.
func stopOperation(c *ExecutionContext, deps handlerDeps) (OperationResult, error) {
	if c.Machine == nil {
		deps.log.Debugw("cannot stop, state machine not initialized")
		return resultFail("State machine not initialized"), nil
	}

	if !c.Machine.Transition(StateStopped) {
		deps.log.Debugw("cannot stop from current state", "state", c.Machine.Current())
		return resultFail("Cannot stop from current state"), nil
	}

	// A stop counts as completion for the caller.
	c.SetOperationJustCompleted(true)

	if err := c.Robot.StopMotion(); err != nil {
		deps.log.Debugw("error stopping robot on stop", "error", procerror.NewIgnoredError(err))
	}

	motorAddress := c.MotorAddressForCurrentPath()
	if motorAddress == -1 {
		c.Glue.GeneratorOff()
		deps.log.Debugw("invalid motor address for current path during stop")
		return resultFail("Invalid motor address for current path"),
			procerror.NewPermanentError(fmt.Errorf("invalid motor address for current path during stop: %d", motorAddress))
	}

	settings := c.CurrentSettings()
	c.Pump.PumpOff(c, motorAddress, settings)
	c.Glue.GeneratorOff()
	c.Pump.PumpOff(c, motorAddress, settings)
	c.Glue.GeneratorOff()

	deps.log.Debugw("operation stopped", "state", c.Machine.Current())

	c.Robot.SetTrajectoryBroadcast(false)
	c.Robot.Publisher().PublishTrajectoryStop()

	return resultOK("Operation stopped"), nil
}
