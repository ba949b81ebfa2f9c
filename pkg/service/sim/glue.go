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

package sim

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dispenso/gluecell/pkg/logger"
)

// GlueHardware is an instant in-memory pump/generator/fan facade. Every call
// succeeds and is counted, so tests can assert call ordering and multiplicity.
type GlueHardware struct {
	mu sync.Mutex

	generatorOn bool
	fanOn       bool
	fanSpeed    float64
	motorOn     map[int]bool
	motorSpeed  map[int]float64

	GeneratorOnCalls  int
	GeneratorOffCalls int
	FanOnCalls        int
	FanOffCalls       int
	MotorOnCalls      int
	MotorOffCalls     int
	AdjustCalls       int

	log *zap.SugaredLogger
}

func NewGlueHardware() *GlueHardware {
	return &GlueHardware{
		motorOn:    make(map[int]bool),
		motorSpeed: make(map[int]float64),
		log:        logger.For(logger.ComponentGlueService),
	}
}

func (g *GlueHardware) GeneratorOn() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.generatorOn = true
	g.GeneratorOnCalls++
	return true
}

func (g *GlueHardware) GeneratorOff() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.generatorOn = false
	g.GeneratorOffCalls++
	return true
}

func (g *GlueHardware) GeneratorState() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generatorOn
}

func (g *GlueHardware) FanOn(speed float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fanOn = true
	g.fanSpeed = speed
	g.FanOnCalls++
	return true
}

func (g *GlueHardware) FanOff() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fanOn = false
	g.FanOffCalls++
	return true
}

func (g *GlueHardware) MotorOn(address int, speed float64, rampSteps int, initialRampSpeed float64, initialRampDuration time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.motorOn[address] = true
	g.motorSpeed[address] = speed
	g.MotorOnCalls++
	g.log.Debugw("motor on", "address", address, "speed", speed, "rampSteps", rampSteps)
	return true
}

func (g *GlueHardware) MotorOff(address int, speedReverse float64, reverseDuration time.Duration, rampSteps int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.motorOn[address] = false
	g.motorSpeed[address] = 0
	g.MotorOffCalls++
	g.log.Debugw("motor off", "address", address, "speedReverse", speedReverse)
	return true
}

func (g *GlueHardware) AdjustMotorSpeed(address int, speed float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.motorSpeed[address] = speed
	g.AdjustCalls++
	return true
}

func (g *GlueHardware) MotorRunning(address int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.motorOn[address]
}

func (g *GlueHardware) MotorSpeed(address int) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.motorSpeed[address]
}
