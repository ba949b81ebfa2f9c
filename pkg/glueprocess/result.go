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

// OperationResult is the pass/fail feedback the UI layer displays. It never
// carries internal state; callers that need the machine state read it off
// the operation.
type OperationResult struct {
	Success bool
	Message string
}

func resultOK(message string) OperationResult {
	return OperationResult{Success: true, Message: message}
}

func resultFail(message string) OperationResult {
	return OperationResult{Success: false, Message: message}
}
