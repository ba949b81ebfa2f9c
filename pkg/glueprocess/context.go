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
	"errors"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"

	"github.com/dispenso/gluecell/internal/fsm"
	"github.com/dispenso/gluecell/pkg/gluecell"
	"github.com/dispenso/gluecell/pkg/service"
)

// PathSegment is one trajectory segment: the points the robot traces and the
// per-segment settings overriding the global glue defaults.
type PathSegment struct {
	Points   []service.Position
	Settings Settings
}

// ExecutionContext is the single mutable unit of work of a dispensing run.
// The state machine loop is the main mutator; Pause/Resume/Stop run on other
// goroutines and touch disjoint flags, which is why the cross-goroutine
// fields are atomics and the machine's current state stays the single source
// of truth re-read at every loop iteration.
type ExecutionContext struct {
	// Machine is set once by the operation after the machine is built.
	Machine *fsm.Machine[*ExecutionContext]

	// Injected collaborators, not owned.
	Pump  *PumpController
	Robot service.RobotService
	Glue  service.GlueHardware
	Cells *gluecell.Registry

	// Paths is immutable once execution starts.
	Paths []PathSegment

	pathIndex  atomic.Int64
	pointIndex atomic.Int64

	sprayOn                atomic.Bool
	motorStarted           atomic.Bool
	generatorStarted       atomic.Bool
	operationJustCompleted atomic.Bool
	isResuming             atomic.Bool

	mu              sync.Mutex
	currentSettings Settings
	pausedFromState fsm.State
	pumpTask        *PumpAdjustTask
}

func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{}
}

// Reset clears all run data back to defaults. Collaborators and the machine
// handle stay attached.
func (c *ExecutionContext) Reset() {
	c.mu.Lock()
	c.currentSettings = nil
	c.pausedFromState = ""
	c.pumpTask = nil
	c.mu.Unlock()

	c.Paths = nil
	c.pathIndex.Store(0)
	c.pointIndex.Store(0)
	c.sprayOn.Store(false)
	c.motorStarted.Store(false)
	c.generatorStarted.Store(false)
	c.operationJustCompleted.Store(false)
	c.isResuming.Store(false)
}

// HasValidContext reports whether there is a run to resume.
func (c *ExecutionContext) HasValidContext() bool {
	return len(c.Paths) > 0
}

// SaveProgress records the paused snapshot the next resume restores from.
func (c *ExecutionContext) SaveProgress(pathIndex, pointIndex int) {
	c.pathIndex.Store(int64(pathIndex))
	c.pointIndex.Store(int64(pointIndex))
}

func (c *ExecutionContext) PathIndex() int  { return int(c.pathIndex.Load()) }
func (c *ExecutionContext) PointIndex() int { return int(c.pointIndex.Load()) }

// AdvancePath moves the cursor to the next segment and resets the point
// cursor. Returns the new path index.
func (c *ExecutionContext) AdvancePath() int {
	next := c.pathIndex.Add(1)
	c.pointIndex.Store(0)
	return int(next)
}

// CurrentPath returns the points of the active segment, nil when the cursor
// is out of range.
func (c *ExecutionContext) CurrentPath() []service.Position {
	idx := c.PathIndex()
	if idx < 0 || idx >= len(c.Paths) {
		return nil
	}
	return c.Paths[idx].Points
}

func (c *ExecutionContext) CurrentSettings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSettings
}

func (c *ExecutionContext) SetCurrentSettings(s Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentSettings = s
}

func (c *ExecutionContext) SprayOn() bool      { return c.sprayOn.Load() }
func (c *ExecutionContext) SetSprayOn(on bool) { c.sprayOn.Store(on) }
func (c *ExecutionContext) MotorStarted() bool { return c.motorStarted.Load() }
func (c *ExecutionContext) SetMotorStarted(on bool) {
	c.motorStarted.Store(on)
}
func (c *ExecutionContext) GeneratorStarted() bool { return c.generatorStarted.Load() }
func (c *ExecutionContext) SetGeneratorStarted(on bool) {
	c.generatorStarted.Store(on)
}
func (c *ExecutionContext) IsResuming() bool      { return c.isResuming.Load() }
func (c *ExecutionContext) SetIsResuming(on bool) { c.isResuming.Store(on) }

func (c *ExecutionContext) OperationJustCompleted() bool {
	return c.operationJustCompleted.Load()
}

func (c *ExecutionContext) SetOperationJustCompleted(on bool) {
	c.operationJustCompleted.Store(on)
}

// ConsumeOperationJustCompleted reads and clears the one-shot flag.
func (c *ExecutionContext) ConsumeOperationJustCompleted() bool {
	return c.operationJustCompleted.Swap(false)
}

func (c *ExecutionContext) PausedFromState() fsm.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pausedFromState
}

func (c *ExecutionContext) SetPausedFromState(s fsm.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pausedFromState = s
}

func (c *ExecutionContext) PumpTask() *PumpAdjustTask {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pumpTask
}

func (c *ExecutionContext) SetPumpTask(t *PumpAdjustTask) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pumpTask = t
}

// MotorAddressForCurrentPath resolves the Modbus motor address from the
// active settings. Return values mirror how callers react: 0 is the safe
// fallback address, -1 is an unresolvable mapping every handler treats as
// fatal.
func (c *ExecutionContext) MotorAddressForCurrentPath() int {
	settings := c.CurrentSettings()
	if settings == nil {
		return 0
	}

	glueType, ok := settings.String(KeyGlueType)
	if !ok || glueType == "" {
		return -1
	}

	if c.Cells == nil {
		return 0
	}

	addr, err := c.Cells.MotorAddressForGlueType(glueType)
	if err != nil {
		if errors.Is(err, gluecell.ErrUnknownGlueType) {
			return -1
		}
		return 0
	}
	return addr
}

// contextSnapshot is the serialized debug view of a context.
type contextSnapshot struct {
	Timestamp              string    `json:"timestamp"`
	State                  string    `json:"state"`
	PathCount              int       `json:"path_count"`
	CurrentPathIndex       int       `json:"current_path_index"`
	CurrentPointIndex      int       `json:"current_point_index"`
	CurrentSettings        Settings  `json:"current_settings"`
	SprayOn                bool      `json:"spray_on"`
	MotorStarted           bool      `json:"motor_started"`
	GeneratorStarted       bool      `json:"generator_started"`
	IsResuming             bool      `json:"is_resuming"`
	OperationJustCompleted bool      `json:"operation_just_completed"`
	PausedFromState        fsm.State `json:"paused_from_state"`
	PumpTaskActive         bool      `json:"pump_task_active"`
}

// DebugSnapshot serializes the context for post-mortem inspection. state
// names the machine phase the snapshot was taken in.
func (c *ExecutionContext) DebugSnapshot(state string) ([]byte, error) {
	task := c.PumpTask()
	snap := contextSnapshot{
		Timestamp:              time.Now().Format("20060102_150405.000000"),
		State:                  state,
		PathCount:              len(c.Paths),
		CurrentPathIndex:       c.PathIndex(),
		CurrentPointIndex:      c.PointIndex(),
		CurrentSettings:        c.CurrentSettings(),
		SprayOn:                c.SprayOn(),
		MotorStarted:           c.MotorStarted(),
		GeneratorStarted:       c.GeneratorStarted(),
		IsResuming:             c.IsResuming(),
		OperationJustCompleted: c.OperationJustCompleted(),
		PausedFromState:        c.PausedFromState(),
		PumpTaskActive:         task != nil && !task.Finished(),
	}
	return json.MarshalIndent(snap, "", "  ")
}
