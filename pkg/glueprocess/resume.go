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

// resumeOperation restarts a paused run from its saved snapshot by routing
// the machine back to STARTING with the resuming flag set, so the downstream
// handlers skip the parts already done (boost ramp, cursor reset).
//
// The resuming flag is set before the transition attempt and is deliberately
// left set when the transition is rejected. Callers observe the flag as-is.
func resumeOperation(c *ExecutionContext, deps handlerDeps) (OperationResult, error) {
	if c.Machine == nil {
		deps.log.Debugw("cannot resume, state machine not initialized")
		return resultFail("State machine not initialized"), nil
	}

	if c.Machine.Current() != StatePaused {
		deps.log.Debugw("cannot resume, not in paused state", "state", c.Machine.Current())
		return resultFail("Not in paused state"), nil
	}

	if !c.HasValidContext() {
		deps.log.Debugw("cannot resume, no execution context")
		return resultFail("No execution context to resume"), nil
	}

	deps.log.Debugw("resuming operation",
		"pathIndex", c.PathIndex(), "pointIndex", c.PointIndex(),
		"pausedFrom", c.PausedFromState())

	c.SetIsResuming(true)

	if !c.Machine.Transition(StateStarting) {
		return resultFail("Invalid state transition"), nil
	}

	return resultOK("Operation resumed"), nil
}
