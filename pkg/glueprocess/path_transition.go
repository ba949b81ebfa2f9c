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

	"github.com/dispenso/gluecell/internal/fsm"
	"github.com/dispenso/gluecell/pkg/procerror"
)

// handleTransitionBetweenPaths closes out the finished segment and advances
// the cursor. When configured, the pump is de-energized for the travel move
// between segments; the motor address is validated before any pump call and
// an unresolvable address aborts the run.
func handleTransitionBetweenPaths(c *ExecutionContext, deps handlerDeps) (fsm.State, error) {
	if deps.cfg.TurnOffPumpBetweenPaths && c.MotorStarted() && c.SprayOn() {
		motorAddress := c.MotorAddressForCurrentPath()
		if motorAddress == -1 {
			deps.log.Errorw("invalid motor address between paths")
			return "", procerror.NewPermanentError(
				fmt.Errorf("invalid motor address for current path during path transition: %d", motorAddress))
		}

		c.Pump.PumpOff(c, motorAddress, c.CurrentSettings())
		c.SetMotorStarted(false)
		c.Robot.Publisher().PublishTrajectoryBreak()
	}

	next := c.AdvancePath()
	if next >= len(c.Paths) {
		return StateCompleted, nil
	}
	return StateStarting, nil
}
