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

// handleCompletedState closes out the run: flags completion for the caller,
// turns the generator off unconditionally, and returns the machine to IDLE
// so a fresh start can follow.
func handleCompletedState(c *ExecutionContext, deps handlerDeps) (fsm.State, error) {
	deps.log.Infow("glue dispensing process completed")

	c.SetOperationJustCompleted(true)
	c.Glue.GeneratorOff()
	c.SetGeneratorStarted(false)

	return StateIdle, nil
}
