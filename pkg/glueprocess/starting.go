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
	"go.uber.org/zap"

	"github.com/dispenso/gluecell/internal/fsm"
	"github.com/dispenso/gluecell/pkg/config"
)

// handlerDeps bundles what every state handler needs beside the context:
// the component logger, the process knobs, and the global glue settings the
// per-segment settings are merged over.
type handlerDeps struct {
	log     *zap.SugaredLogger
	cfg     config.ProcessConfig
	globals Settings
}

// handleStartingState prepares the active segment: computes its effective
// settings, points the robot at the segment's start, and hands over to the
// position wait. On a resume the saved cursors select the segment and the
// point to restart from instead of the segment's first point.
func handleStartingState(c *ExecutionContext, deps handlerDeps) (fsm.State, error) {
	pathIndex := c.PathIndex()
	if pathIndex < 0 || pathIndex >= len(c.Paths) {
		deps.log.Errorw("no path at current index", "pathIndex", pathIndex, "paths", len(c.Paths))
		return StateError, nil
	}

	segment := c.Paths[pathIndex]
	settings := MergeSettings(deps.globals, segment.Settings)
	c.SetCurrentSettings(settings)

	startIndex := 0
	if c.IsResuming() {
		startIndex = c.PointIndex()
		if startIndex < 0 || startIndex >= len(segment.Points) {
			startIndex = 0
		}
		c.SetIsResuming(false)
		deps.log.Infow("resuming segment", "pathIndex", pathIndex, "pointIndex", startIndex)
	} else {
		c.SaveProgress(pathIndex, 0)
	}

	if len(segment.Points) == 0 {
		// Nothing to trace; let the downstream handlers skip through.
		return StateMovingToFirstPoint, nil
	}

	c.Robot.SetTrajectoryBroadcast(true)

	target := segment.Points[startIndex]
	velocity := settings.Float(KeyVelocity, 0)
	acceleration := settings.Float(KeyAcceleration, 0)
	if rc := c.Robot.MoveToPosition(target, velocity, acceleration); rc != 0 {
		deps.log.Errorw("move to segment start refused", "pathIndex", pathIndex, "code", rc)
		return StateError, nil
	}

	return StateMovingToFirstPoint, nil
}
