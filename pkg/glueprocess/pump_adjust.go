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
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dispenso/gluecell/pkg/logger"
	"github.com/dispenso/gluecell/pkg/service"
)

// PumpAdjustTask tunes the pump speed to the robot's travel while a path is
// being traced. It runs until the robot reaches the last path point, or until
// it observes PAUSED/STOPPED on the machine and unwinds cooperatively,
// reporting the last point index it saw the robot pass. It is never killed.
type PumpAdjustTask struct {
	done chan struct{}

	mu       sync.Mutex
	finished bool
	success  bool
	progress int

	log *zap.SugaredLogger
}

// startPumpAdjustment spawns the adjustment goroutine for the active path.
// interval bounds both the speed updates and the pause/stop observation
// latency.
func startPumpAdjustment(c *ExecutionContext, motorAddress int, interval time.Duration) *PumpAdjustTask {
	t := &PumpAdjustTask{
		done:     make(chan struct{}),
		progress: c.PointIndex(),
		log:      logger.For(logger.ComponentPumpAdjust),
	}
	go t.run(c, motorAddress, interval)
	return t
}

func (t *PumpAdjustTask) run(c *ExecutionContext, motorAddress int, interval time.Duration) {
	defer close(t.done)

	path := c.CurrentPath()
	settings := c.CurrentSettings()
	if len(path) == 0 {
		t.finish(true, 0)
		return
	}

	baseSpeed := settings.Float(KeyMotorSpeed, fallbackMotorSpeed)
	coefficient := settings.Float(KeyGlueSpeedCoefficient, 0)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastPos, havePos := c.robotPosition()
	progress := t.Progress()

	for range ticker.C {
		switch c.Machine.Current() {
		case StatePaused:
			t.log.Debugw("pause observed, capturing progress", "progress", progress)
			t.finish(false, progress)
			return
		case StateStopped:
			t.log.Debugw("stop observed", "progress", progress)
			t.finish(false, progress)
			return
		}

		pos, ok := c.robotPosition()
		if !ok {
			continue
		}

		// Advance the progress cursor past every point the robot has come
		// within reach of. The cursor is monotonic; a pause snapshot never
		// moves backwards.
		for progress < len(path)-1 && pos.Distance(path[progress+1]) <= pos.Distance(path[progress]) {
			progress++
		}
		t.setProgress(progress)

		if havePos {
			travel := pos.Distance(lastPos)
			velocity := travel / interval.Seconds()
			speed := baseSpeed + coefficient*velocity
			c.Glue.AdjustMotorSpeed(motorAddress, speed)
		}
		lastPos, havePos = pos, true

		if progress >= len(path)-1 && pos.Distance(path[len(path)-1]) <= reachEndTolerance {
			t.finish(true, len(path)-1)
			return
		}
	}
}

// reachEndTolerance is the arrival distance for the last path point, in the
// robot's position units.
const reachEndTolerance = 1.0

func (c *ExecutionContext) robotPosition() (pos service.Position, ok bool) {
	if c.Robot == nil {
		return pos, false
	}
	return c.Robot.CurrentPosition()
}

func (t *PumpAdjustTask) finish(success bool, progress int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finished = true
	t.success = success
	t.progress = progress
}

func (t *PumpAdjustTask) setProgress(p int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress = p
}

// Progress is the last point index the task saw the robot pass.
func (t *PumpAdjustTask) Progress() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// Finished reports whether the task has terminated.
func (t *PumpAdjustTask) Finished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished
}

// Result returns the terminal outcome. Valid only once Finished is true.
func (t *PumpAdjustTask) Result() (success bool, progress int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.success, t.progress
}

// Done is closed when the task terminates.
func (t *PumpAdjustTask) Done() <-chan struct{} {
	return t.done
}

// Join waits up to timeout for the task to finish. Returns false on timeout.
func (t *PumpAdjustTask) Join(timeout time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(timeout):
		return false
	}
}
