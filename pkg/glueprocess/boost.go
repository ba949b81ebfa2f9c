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

import "github.com/dispenso/gluecell/internal/fsm"

// handlePumpInitialBoost energizes the pump with the boost ramp, once per
// run. Dry runs and already-energized motors skip straight through. A motor
// that refuses to start leaves the started flag clear.
func handlePumpInitialBoost(c *ExecutionContext, deps handlerDeps) (fsm.State, error) {
	if !c.SprayOn() || c.MotorStarted() {
		return StateStartingPumpAdjust, nil
	}

	motorAddress := c.MotorAddressForCurrentPath()
	if motorAddress == -1 {
		deps.log.Errorw("invalid motor address for initial boost")
		return StateError, nil
	}

	if !c.Pump.PumpOn(c, motorAddress, c.CurrentSettings()) {
		deps.log.Errorw("pump refused initial boost", "motorAddress", motorAddress)
		return StateError, nil
	}

	c.SetMotorStarted(true)
	return StateStartingPumpAdjust, nil
}
