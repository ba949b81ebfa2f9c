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

// handleStartPumpAdjustment spawns the speed-tuning task for the active
// segment when spraying with adjustment enabled. Without a task the wait
// handler falls back to watching robot motion directly.
func handleStartPumpAdjustment(c *ExecutionContext, deps handlerDeps) (fsm.State, error) {
	c.SetPumpTask(nil)

	if c.SprayOn() && deps.cfg.AdjustPumpSpeedWhileSpray {
		motorAddress := c.MotorAddressForCurrentPath()
		if motorAddress != -1 {
			task := startPumpAdjustment(c, motorAddress, deps.cfg.StatePollInterval)
			c.SetPumpTask(task)
			deps.log.Debugw("pump adjustment task started",
				"pathIndex", c.PathIndex(), "motorAddress", motorAddress)
		} else {
			deps.log.Warnw("skipping pump adjustment, invalid motor address")
		}
	}

	return StateSendingPathPoints, nil
}
