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
	"github.com/dispenso/gluecell/pkg/service"
)

// handleSendPathToRobot issues the linear-motion command for the active
// segment. A pause or stop observed after the command returns is reflected
// back as-is, never overridden. An empty segment sends nothing and still
// moves on to the completion wait.
func handleSendPathToRobot(c *ExecutionContext, deps handlerDeps) (fsm.State, error) {
	settings := c.CurrentSettings()
	velocity := settings.Float(KeyVelocity, 0)
	acceleration := settings.Float(KeyAcceleration, 0)

	points := c.CurrentPath()
	if idx := c.PointIndex(); idx > 0 && idx < len(points) {
		// Resume sends only the remainder of the segment.
		points = points[idx:]
	}

	if len(points) > 0 {
		rc, err := moveLinear(c.Robot, points, velocity, acceleration)
		if err != nil {
			deps.log.Errorw("linear move failed", "pathIndex", c.PathIndex(), "error", err)
			return "", procerror.NewTransientError(err)
		}
		if rc != 0 {
			deps.log.Errorw("linear move refused", "pathIndex", c.PathIndex(), "code", rc)
			return "", procerror.NewTransientError(fmt.Errorf("linear move refused with code %d", rc))
		}
	}

	switch state := c.Machine.Current(); state {
	case StatePaused, StateStopped:
		return state, nil
	}

	return StateWaitPathCompletion, nil
}

// moveLinear contains a panicking robot driver so a vendor SDK fault surfaces
// as an error instead of tearing down the run loop.
func moveLinear(robot service.RobotService, points []service.Position, velocity, acceleration float64) (rc int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoveredError(r)
		}
	}()
	return robot.MoveLinear(points, velocity, acceleration), nil
}

func recoveredError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
