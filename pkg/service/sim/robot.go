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

// Package sim provides simulated hardware for dry runs and tests: a kinematic
// robot that steps toward its targets and an instant glue hardware facade.
package sim

import (
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/dispenso/gluecell/pkg/logger"
	"github.com/dispenso/gluecell/pkg/service"
)

var errNotArrived = errors.New("position not reached")

// Robot is an in-memory robot arm. Move commands advance the pose toward the
// target in fixed-size steps per poll so position waits behave like a real
// controller instead of teleporting.
type Robot struct {
	mu        sync.Mutex
	position  service.Position
	target    service.Position
	stopped   bool
	broadcast bool

	// StepSize is how far the pose advances toward the target per poll tick.
	StepSize float64
	// PollInterval bounds the position-wait poll loop.
	PollInterval time.Duration
	// WaitBudget is the wall-clock retry budget for a single position wait.
	WaitBudget time.Duration

	publisher service.MessagePublisher
	log       *zap.SugaredLogger
}

func NewRobot(pub service.MessagePublisher) *Robot {
	return &Robot{
		StepSize:     50.0,
		PollInterval: 10 * time.Millisecond,
		WaitBudget:   30 * time.Second,
		publisher:    pub,
		log:          logger.For(logger.ComponentRobotService),
	}
}

// CurrentPosition reports the pose. Observation advances the pose one step
// toward the active target so any poller sees the arm in motion.
func (r *Robot) CurrentPosition() (service.Position, bool) {
	r.step()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.position, true
}

// SetPosition places the arm without motion. Tests use it to stage a pose.
func (r *Robot) SetPosition(p service.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.position = p
}

func (r *Robot) MoveToPosition(target service.Position, velocity, acceleration float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = false
	r.target = target
	return 0
}

func (r *Robot) MoveLinear(points []service.Position, velocity, acceleration float64) int {
	if len(points) == 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = false
	r.target = points[len(points)-1]
	return 0
}

func (r *Robot) StopMotion() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	r.target = r.position
	return nil
}

func (r *Robot) SetTrajectoryBroadcast(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcast = on
}

func (r *Robot) TrajectoryBroadcast() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.broadcast
}

func (r *Robot) Publisher() service.MessagePublisher {
	return r.publisher
}

// step advances the pose toward the current target by at most StepSize.
func (r *Robot) step() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	dist := r.position.Distance(r.target)
	if dist == 0 {
		r.position = r.target
		return
	}
	if dist <= r.StepSize {
		r.position = r.target
		return
	}
	frac := r.StepSize / dist
	for i := range r.position {
		r.position[i] += (r.target[i] - r.position[i]) * frac
	}
}

// WaitForPositionReached polls the pose until it is within threshold of
// target. The poll is bounded by WaitBudget and aborts early when the token
// is cancelled.
func (r *Robot) WaitForPositionReached(target service.Position, threshold float64, token service.CancelToken) bool {
	check := func() error {
		if token != nil && token.IsCancelled() {
			return backoff.Permanent(errNotArrived)
		}
		pos, ok := r.CurrentPosition()
		if !ok {
			return errNotArrived
		}
		if pos.Distance(target) <= threshold {
			return nil
		}
		return errNotArrived
	}

	policy := backoff.NewConstantBackOff(r.PollInterval)
	err := backoff.Retry(check, newBudget(policy, r.WaitBudget))
	if err != nil {
		r.log.Debugw("position wait ended without arrival", "target", target, "threshold", threshold)
		return false
	}
	return true
}

// budget caps a backoff policy with a wall-clock deadline.
type budget struct {
	inner    backoff.BackOff
	deadline time.Time
}

func newBudget(inner backoff.BackOff, d time.Duration) *budget {
	return &budget{inner: inner, deadline: time.Now().Add(d)}
}

func (b *budget) NextBackOff() time.Duration {
	if time.Now().After(b.deadline) {
		return backoff.Stop
	}
	return b.inner.NextBackOff()
}

func (b *budget) Reset() {
	b.inner.Reset()
}
