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
	"time"

	"github.com/dispenso/gluecell/internal/fsm"
)

// pauseJoinTimeout is how long the wait handler gives the pump task to
// notice a pause and report its progress.
const pauseJoinTimeout = 2 * time.Second

// handleWaitForPathCompletion waits for the active segment to finish. With a
// pump adjustment task running, task termination doubles as motion
// completion since the task runs until the robot reaches the last point.
// Without a task the handler watches the robot directly.
//
// A pause observed mid-wait joins the task briefly so its in-flight progress
// lands in the resume snapshot. A stop bails immediately.
func handleWaitForPathCompletion(c *ExecutionContext, deps handlerDeps) (fsm.State, error) {
	task := c.PumpTask()
	defer c.SetPumpTask(nil)

	path := c.CurrentPath()
	pathIndex := c.PathIndex()

	deps.log.Debugw("waiting for path completion", "pathIndex", pathIndex)

	if task == nil {
		return waitForRobotCompletion(c, deps)
	}

	ticker := time.NewTicker(deps.cfg.StatePollInterval)
	defer ticker.Stop()

poll:
	for {
		select {
		case <-task.Done():
			break poll
		case <-ticker.C:
			switch c.Machine.Current() {
			case StatePaused:
				pausedPoint := c.PointIndex()
				if task.Join(pauseJoinTimeout) {
					_, pausedPoint = task.Result()
					deps.log.Debugw("captured pump task progress on pause", "pointIndex", pausedPoint)
				}
				c.SaveProgress(pathIndex, pausedPoint)
				return StatePaused, nil
			case StateStopped:
				deps.log.Debugw("stopped while waiting for pump task")
				return StateStopped, nil
			}
		}
	}

	success, progress := task.Result()
	finalPoint := progress
	if finalPoint >= len(path) {
		finalPoint = len(path) - 1
	}
	if finalPoint < 0 {
		finalPoint = 0
	}
	c.SaveProgress(pathIndex, finalPoint)

	deps.log.Debugw("pump task finished", "success", success, "pointIndex", finalPoint)

	return StateTransitionBetween, nil
}

// waitForRobotCompletion is the no-task fallback: a cancellation-aware wait
// for the robot to arrive at the segment's last point.
func waitForRobotCompletion(c *ExecutionContext, deps handlerDeps) (fsm.State, error) {
	path := c.CurrentPath()
	if len(path) == 0 {
		return StateTransitionBetween, nil
	}

	settings := c.CurrentSettings()
	threshold := settings.Float(KeyReachStartThreshold, defaultReachStartThreshold)

	token := NewCancellationToken()
	stopWatch := watchInterrupts(c, token, deps.cfg.StatePollInterval)
	defer stopWatch()

	if !c.Robot.WaitForPositionReached(path[len(path)-1], threshold, token) {
		// First cancel wins, so an expired budget never masks a pause or stop.
		token.Cancel(CancelTimeout)
	}

	switch token.Reason() {
	case CancelPaused:
		c.SaveProgress(c.PathIndex(), c.PointIndex())
		return StatePaused, nil
	case CancelStopped:
		return StateStopped, nil
	case CancelTimeout:
		deps.log.Errorw("robot never completed segment",
			"pathIndex", c.PathIndex(), "reason", token.Reason())
		return StateError, nil
	}

	c.SaveProgress(c.PathIndex(), len(path)-1)
	return StateTransitionBetween, nil
}
