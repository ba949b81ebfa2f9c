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

// defaultReachStartThreshold is the arrival distance used when the segment
// settings carry none.
const defaultReachStartThreshold = 1.0

// handleMovingToFirstPoint blocks until the robot is within the reach-start
// threshold of the segment's entry point. An operator pause or stop landing
// during the wait cancels the token; the token reason is the only channel
// carrying that intent across the blocking call, and it routes the machine
// to PAUSED or STOPPED instead of ERROR.
func handleMovingToFirstPoint(c *ExecutionContext, deps handlerDeps) (fsm.State, error) {
	settings := c.CurrentSettings()
	if settings == nil {
		deps.log.Errorw("no settings for current path, cannot move to start")
		return StateError, nil
	}

	path := c.CurrentPath()
	if len(path) == 0 {
		return StateExecutingPath, nil
	}

	pointIndex := c.PointIndex()
	if pointIndex < 0 || pointIndex >= len(path) {
		pointIndex = 0
	}
	target := path[pointIndex]
	threshold := settings.Float(KeyReachStartThreshold, defaultReachStartThreshold)

	token := NewCancellationToken()
	stopWatch := watchInterrupts(c, token, deps.cfg.StatePollInterval)
	defer stopWatch()

	if !c.Robot.WaitForPositionReached(target, threshold, token) {
		// First cancel wins, so an expired budget never masks a pause or stop.
		token.Cancel(CancelTimeout)
	}

	switch token.Reason() {
	case CancelPaused:
		return StatePaused, nil
	case CancelStopped:
		return StateStopped, nil
	case CancelTimeout:
		deps.log.Errorw("robot never reached segment start",
			"pathIndex", c.PathIndex(), "threshold", threshold, "reason", token.Reason())
		return StateError, nil
	}

	return StateExecutingPath, nil
}
