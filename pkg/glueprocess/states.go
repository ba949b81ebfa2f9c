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

// Package glueprocess implements the glue dispensing process: the state
// machine wiring, the execution context shared by all state handlers, the
// pump/generator sequencing, and the pause/resume/stop control operations.
package glueprocess

import "github.com/dispenso/gluecell/internal/fsm"

// Process states. A dispensing run walks STARTING through
// TRANSITION_BETWEEN_PATHS once per trajectory segment, looping back to
// STARTING until the segments are exhausted.
const (
	StateIdle               fsm.State = "IDLE"
	StateStarting           fsm.State = "STARTING"
	StateMovingToFirstPoint fsm.State = "MOVING_TO_FIRST_POINT"
	StateInitialPumpBoost   fsm.State = "INITIAL_PUMP_BOOST"
	StateStartingPumpAdjust fsm.State = "STARTING_PUMP_ADJUSTMENT_THREAD"
	StateExecutingPath      fsm.State = "EXECUTING_PATH"
	StateSendingPathPoints  fsm.State = "SENDING_PATH_POINTS"
	StateWaitPathCompletion fsm.State = "WAIT_FOR_PATH_COMPLETION"
	StateTransitionBetween  fsm.State = "TRANSITION_BETWEEN_PATHS"
	StatePaused             fsm.State = "PAUSED"
	StateStopped            fsm.State = "STOPPED"
	StateCompleted          fsm.State = "COMPLETED"
	StateError              fsm.State = "ERROR"
)

// TransitionRules is the legal-transition table. Every state change in the
// system, including the ones requested by Pause/Resume/Stop, goes through
// Machine.Transition which enforces this table.
//
// STOPPED routes through COMPLETED so the completion handler performs the
// generator shutdown and returns the machine to IDLE on both exit paths.
func TransitionRules() fsm.TransitionRules {
	return fsm.TransitionRules{
		StateIdle:               {StateStarting, StateError},
		StateStarting:           {StateMovingToFirstPoint, StatePaused, StateStopped, StateError},
		StateMovingToFirstPoint: {StateExecutingPath, StatePaused, StateStopped, StateError},
		StateExecutingPath:      {StateInitialPumpBoost, StatePaused, StateStopped, StateError},
		StateInitialPumpBoost:   {StateStartingPumpAdjust, StatePaused, StateStopped, StateError},
		StateStartingPumpAdjust: {StateSendingPathPoints, StatePaused, StateStopped, StateError},
		StateSendingPathPoints:  {StateWaitPathCompletion, StatePaused, StateStopped, StateError},
		StateWaitPathCompletion: {StateTransitionBetween, StatePaused, StateStopped, StateError},
		StateTransitionBetween:  {StateStarting, StateCompleted, StatePaused, StateStopped, StateError},
		StatePaused:             {StateStarting, StateStopped, StateError},
		StateStopped:            {StateCompleted},
		StateCompleted:          {StateIdle},
		StateError:              {StateIdle},
	}
}
