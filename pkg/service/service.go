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

// Package service declares the collaborator contracts the glue process
// depends on. Implementations live elsewhere (vendor SDK wrappers, Modbus
// drivers); pkg/service/sim carries simulated ones for dry runs and tests.
package service

import (
	"math"
	"time"
)

// Position is a 6-axis robot pose: x, y, z, rx, ry, rz.
type Position [6]float64

// Distance is the Euclidean distance over the translational axes.
func (p Position) Distance(other Position) float64 {
	dx := p[0] - other[0]
	dy := p[1] - other[1]
	dz := p[2] - other[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// CancelToken is the read side of a cooperative cancellation primitive.
// Blocking waits poll it at a bounded interval.
type CancelToken interface {
	IsCancelled() bool
}

// RobotService drives the robot arm. Move commands return a vendor result
// code, 0 meaning accepted.
type RobotService interface {
	// CurrentPosition returns the live pose, or false when the controller
	// cannot report one.
	CurrentPosition() (Position, bool)

	MoveToPosition(target Position, velocity, acceleration float64) int
	MoveLinear(points []Position, velocity, acceleration float64) int

	// StopMotion halts the arm. Callers on shutdown paths tolerate an error
	// here and continue with pump teardown.
	StopMotion() error

	// WaitForPositionReached polls until the arm is within threshold of
	// target, the token is cancelled, or the wait budget runs out. Returns
	// true only on arrival.
	WaitForPositionReached(target Position, threshold float64, token CancelToken) bool

	SetTrajectoryBroadcast(on bool)
	Publisher() MessagePublisher
}

// GlueHardware is the pump/generator/fan facade. Implementations serialize
// their own wire access; callers rely on that instead of locking here.
type GlueHardware interface {
	GeneratorOn() bool
	GeneratorOff() bool
	GeneratorState() bool

	FanOn(speed float64) bool
	FanOff() bool

	MotorOn(address int, speed float64, rampSteps int, initialRampSpeed float64, initialRampDuration time.Duration) bool
	MotorOff(address int, speedReverse float64, reverseDuration time.Duration, rampSteps int) bool
	AdjustMotorSpeed(address int, speed float64) bool
}

// MessagePublisher pushes trajectory notifications to the observability
// channel. Delivery is best effort.
type MessagePublisher interface {
	PublishTrajectoryBreak()
	PublishTrajectoryStop()
}
